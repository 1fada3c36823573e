package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"acquisition_backend/internal/acquisition"
	"acquisition_backend/internal/acquisition/service"
	"acquisition_backend/migrations"
	"acquisition_backend/platform/config"
	"acquisition_backend/platform/db"
	"acquisition_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// newService loads the config and opens a pool. The caller must defer the
// returned close func.
func newService(ctx context.Context) (*service.Service, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to database: %w", err)
	}

	svc, err := acquisition.NewService(pool, acquisition.Options{
		MinConfidence: cfg.GetOCRMinConfidence(),
	}, logger.New(cfg.Env))
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("initializing service: %w", err)
	}

	return svc, pool.Close, nil
}

func uuidFlag(cmd *cobra.Command, name string) (uuid.UUID, error) {
	raw, err := cmd.Flags().GetString(name)
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid --%s %q: %w", name, raw, err)
	}
	return id, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var rootCmd = &cobra.Command{
	Use:   "acqctl",
	Short: "Operator tooling for the acquisition pipeline",
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if err := db.RunMigrations(cmd.Context(), cfg, migrations.FS); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		fmt.Println("Migrations applied")
		return nil
	},
}

var resyncFolderCmd = &cobra.Command{
	Use:   "resync-folder",
	Short: "Mirror a contract's owner and property onto its pre-listing folder",
	RunE: func(cmd *cobra.Command, args []string) error {
		tenantID, err := uuidFlag(cmd, "tenant")
		if err != nil {
			return err
		}
		contractID, err := uuidFlag(cmd, "contract")
		if err != nil {
			return err
		}

		svc, closeFn, err := newService(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		folder, err := svc.ResyncFolder(cmd.Context(), tenantID, contractID)
		if err != nil {
			return fmt.Errorf("resyncing folder: %w", err)
		}
		return printJSON(folder)
	},
}

var checklistCmd = &cobra.Command{
	Use:   "checklist",
	Short: "Show the persisted document checklist of a folder",
	RunE: func(cmd *cobra.Command, args []string) error {
		tenantID, err := uuidFlag(cmd, "tenant")
		if err != nil {
			return err
		}
		folderID, err := uuidFlag(cmd, "folder")
		if err != nil {
			return err
		}

		svc, closeFn, err := newService(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		items, err := svc.FolderChecklist(cmd.Context(), tenantID, folderID)
		if err != nil {
			return fmt.Errorf("loading checklist: %w", err)
		}
		if len(items) == 0 {
			fmt.Println("No documents uploaded")
			return nil
		}
		return printJSON(items)
	},
}

var ensureChainCmd = &cobra.Command{
	Use:   "ensure-chain",
	Short: "Create the folder and contract for a First Impression if missing",
	RunE: func(cmd *cobra.Command, args []string) error {
		tenantID, err := uuidFlag(cmd, "tenant")
		if err != nil {
			return err
		}
		fiID, err := uuidFlag(cmd, "first-impression")
		if err != nil {
			return err
		}

		svc, closeFn, err := newService(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		folder, contract, err := svc.EnsureChain(cmd.Context(), tenantID, fiID)
		if err != nil {
			return fmt.Errorf("ensuring chain: %w", err)
		}
		fmt.Printf("Folder:   %s\n", folder.ID)
		fmt.Printf("Contract: %s (%s)\n", contract.ID, contract.Status)
		return nil
	},
}

func init() {
	resyncFolderCmd.Flags().String("tenant", "", "Organization ID")
	resyncFolderCmd.Flags().String("contract", "", "Mediation contract ID")
	_ = resyncFolderCmd.MarkFlagRequired("tenant")
	_ = resyncFolderCmd.MarkFlagRequired("contract")

	checklistCmd.Flags().String("tenant", "", "Organization ID")
	checklistCmd.Flags().String("folder", "", "Pre-listing folder ID")
	_ = checklistCmd.MarkFlagRequired("tenant")
	_ = checklistCmd.MarkFlagRequired("folder")

	ensureChainCmd.Flags().String("tenant", "", "Organization ID")
	ensureChainCmd.Flags().String("first-impression", "", "First Impression ID")
	_ = ensureChainCmd.MarkFlagRequired("tenant")
	_ = ensureChainCmd.MarkFlagRequired("first-impression")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(resyncFolderCmd)
	rootCmd.AddCommand(checklistCmd)
	rootCmd.AddCommand(ensureChainCmd)
}
