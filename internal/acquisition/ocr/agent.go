package ocr

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/model"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/functiontool"
	"google.golang.org/genai"

	"acquisition_backend/internal/acquisition/domain"
	"acquisition_backend/internal/acquisition/ports"
	"acquisition_backend/platform/logger"
)

// extractionDeps collects the tool result of one run.
type extractionDeps struct {
	mu     sync.Mutex
	result *domain.ExtractionResult
}

func (d *extractionDeps) set(r domain.ExtractionResult) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.result = &r
}

func (d *extractionDeps) take() *domain.ExtractionResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	r := d.result
	d.result = nil
	return r
}

// AgentExtractor classifies and extracts documents with a vision LLM agent
// that reports through the SaveExtraction tool.
type AgentExtractor struct {
	runner         *runner.Runner
	sessionService session.Service
	appName        string
	deps           *extractionDeps
	extractions    ports.ExtractionLog
	log            *logger.Logger
	runMu          sync.Mutex
}

// NewAgentExtractor builds the agent over any ADK model. extractions may be
// nil, in which case contract-scoped results are not recorded.
func NewAgentExtractor(llm model.LLM, extractions ports.ExtractionLog, log *logger.Logger) (*AgentExtractor, error) {
	deps := &extractionDeps{}

	saveTool, err := buildSaveExtractionTool(deps)
	if err != nil {
		return nil, fmt.Errorf("failed to build extraction tool: %w", err)
	}

	adkAgent, err := llmagent.New(llmagent.Config{
		Name:        "DocumentExtractor",
		Model:       llm,
		Description: "Classifies Portuguese property acquisition documents and extracts their fields",
		Instruction: extractorInstruction,
		Tools:       []tool.Tool{saveTool},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create extraction agent: %w", err)
	}

	sessionService := session.InMemoryService()
	e := &AgentExtractor{
		sessionService: sessionService,
		appName:        "document_extractor",
		deps:           deps,
		extractions:    extractions,
		log:            log,
	}

	r, err := runner.New(runner.Config{
		AppName:        e.appName,
		Agent:          adkAgent,
		SessionService: sessionService,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create extraction runner: %w", err)
	}
	e.runner = r
	return e, nil
}

// ExtractForContract extracts with the contract as context and records the result.
func (e *AgentExtractor) ExtractForContract(ctx context.Context, contract domain.MediationContract, img ports.Image, requested domain.DocumentType) (domain.ExtractionResult, error) {
	result, err := e.run(ctx, img, requested, contractContext(contract))
	if err != nil {
		return result, err
	}
	if e.extractions != nil {
		if recErr := e.extractions.RecordExtraction(ctx, contract.ID, requested, result); recErr != nil {
			e.log.WithContext(ctx).DatabaseError("record_extraction", recErr)
		}
	}
	return result, nil
}

// ExtractStandalone extracts without a contract.
func (e *AgentExtractor) ExtractStandalone(ctx context.Context, img ports.Image, requested domain.DocumentType) (domain.ExtractionResult, error) {
	return e.run(ctx, img, requested, "")
}

func (e *AgentExtractor) run(ctx context.Context, img ports.Image, requested domain.DocumentType, contextInfo string) (domain.ExtractionResult, error) {
	if len(img.Data) == 0 {
		return domain.ExtractionResult{}, fmt.Errorf("no image provided")
	}

	e.runMu.Lock()
	defer e.runMu.Unlock()
	e.deps.take()

	userID := "extractor-" + string(requested)
	sessionID := uuid.NewString()
	if _, err := e.sessionService.Create(ctx, &session.CreateRequest{
		AppName:   e.appName,
		UserID:    userID,
		SessionID: sessionID,
	}); err != nil {
		return domain.ExtractionResult{}, fmt.Errorf("failed to create session: %w", err)
	}
	defer func() {
		if err := e.sessionService.Delete(ctx, &session.DeleteRequest{
			AppName:   e.appName,
			UserID:    userID,
			SessionID: sessionID,
		}); err != nil {
			e.log.Warn("failed to delete extractor session", "error", err)
		}
	}()

	content := &genai.Content{
		Role: "user",
		Parts: []*genai.Part{
			{InlineData: &genai.Blob{MIMEType: img.MIMEType, Data: img.Data}},
			genai.NewPartFromText(buildExtractionPrompt(requested, contextInfo)),
		},
	}
	if err := e.drain(ctx, userID, sessionID, content); err != nil {
		return domain.ExtractionResult{}, err
	}

	if result := e.deps.take(); result != nil {
		return *result, nil
	}

	retry := &genai.Content{
		Role:  "user",
		Parts: []*genai.Part{genai.NewPartFromText("You MUST call the SaveExtraction tool now with your result.")},
	}
	if err := e.drain(ctx, userID, sessionID, retry); err != nil {
		return domain.ExtractionResult{}, err
	}
	if result := e.deps.take(); result != nil {
		return *result, nil
	}
	return domain.ExtractionResult{}, fmt.Errorf("extraction agent did not save a result")
}

func (e *AgentExtractor) drain(ctx context.Context, userID, sessionID string, content *genai.Content) error {
	runConfig := agent.RunConfig{StreamingMode: agent.StreamingModeNone}
	for _, err := range e.runner.Run(ctx, userID, sessionID, content, runConfig) {
		if err != nil {
			return fmt.Errorf("document extraction failed: %w", err)
		}
	}
	return nil
}

// SaveExtractionInput is the SaveExtraction tool schema.
type SaveExtractionInput struct {
	Success          bool    `json:"success" description:"False when the image is not a legible document"`
	DetectedType     string  `json:"detectedType" description:"One of: cc_frente, cc_verso, caderneta_predial, certidao_permanente, licenca_utilizacao, certificado_energetico, documento_proprietario"`
	Confidence       float64 `json:"confidence" description:"Classification confidence between 0 and 1"`
	Message          string  `json:"message,omitempty" description:"Short reason when success is false"`
	Name             string  `json:"name,omitempty" description:"Full name of the card holder"`
	TaxID            string  `json:"tax_id,omitempty" description:"NIF (9 digits)"`
	DocumentNumber   string  `json:"document_number,omitempty" description:"Citizen card number"`
	DocumentExpiry   string  `json:"document_expiry,omitempty" description:"Card expiry date as YYYY-MM-DD"`
	CadastralArticle string  `json:"cadastral_article,omitempty" description:"Artigo matricial"`
	GrossArea        string  `json:"gross_area,omitempty" description:"Area bruta in m2"`
	UsableArea       string  `json:"usable_area,omitempty" description:"Area util in m2"`
	Address          string  `json:"address,omitempty" description:"Property address"`
	PostalCode       string  `json:"postal_code,omitempty" description:"Postal code NNNN-NNN"`
	Parish           string  `json:"parish,omitempty" description:"Freguesia"`
	Municipality     string  `json:"municipality,omitempty" description:"Concelho"`
	EnergyClass      string  `json:"energy_class,omitempty" description:"Energy class, e.g. A+, B, C"`
}

// SaveExtractionOutput acknowledges the tool call.
type SaveExtractionOutput struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func buildSaveExtractionTool(deps *extractionDeps) (tool.Tool, error) {
	return functiontool.New(functiontool.Config{
		Name:        "SaveExtraction",
		Description: "Save the classification and the extracted fields for the document in the image. Call exactly once.",
	}, func(ctx tool.Context, args SaveExtractionInput) (SaveExtractionOutput, error) {
		deps.set(domain.ExtractionResult{
			Success:      args.Success,
			DetectedType: domain.DocumentType(args.DetectedType),
			Confidence:   args.Confidence,
			Message:      args.Message,
			Fields:       args.fields(),
		})
		return SaveExtractionOutput{Success: true, Message: "Extraction saved"}, nil
	})
}

func (in SaveExtractionInput) fields() map[string]string {
	all := map[string]string{
		domain.FieldName:             in.Name,
		domain.FieldTaxID:            in.TaxID,
		domain.FieldDocumentNumber:   in.DocumentNumber,
		domain.FieldDocumentExpiry:   in.DocumentExpiry,
		domain.FieldCadastralArticle: in.CadastralArticle,
		domain.FieldGrossArea:        in.GrossArea,
		domain.FieldUsableArea:       in.UsableArea,
		domain.FieldAddress:          in.Address,
		domain.FieldPostalCode:       in.PostalCode,
		domain.FieldParish:           in.Parish,
		domain.FieldMunicipality:     in.Municipality,
		domain.FieldEnergyClass:      in.EnergyClass,
	}
	out := make(map[string]string, len(all))
	for k, v := range all {
		if strings.TrimSpace(v) != "" {
			out[k] = v
		}
	}
	return out
}

func contractContext(c domain.MediationContract) string {
	var b strings.Builder
	if c.Party1.Name != "" {
		fmt.Fprintf(&b, "Party 1 on file: %s\n", c.Party1.Name)
	}
	if c.Party2 != nil && c.Party2.Name != "" {
		fmt.Fprintf(&b, "Party 2 on file: %s\n", c.Party2.Name)
	}
	if c.CadastralArticle != "" {
		fmt.Fprintf(&b, "Cadastral article on file: %s\n", c.CadastralArticle)
	}
	if c.Address != "" {
		fmt.Fprintf(&b, "Property address on file: %s\n", c.Address)
	}
	return b.String()
}

func buildExtractionPrompt(requested domain.DocumentType, contextInfo string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The agent captured this image as %q (%s).\n", requested, requested.Label())
	b.WriteString("Classify the document yourself; the agent's choice is only a hint.\n")
	if contextInfo != "" {
		b.WriteString("Contract data already on file:\n")
		b.WriteString(contextInfo)
	}
	b.WriteString("Extract only the fields that apply to the detected type, then call SaveExtraction.")
	return b.String()
}

const extractorInstruction = `You read Portuguese real-estate acquisition documents.
Document types:
- cc_frente / cc_verso: Cartao de Cidadao front or back. Fields: name, tax_id, document_number, document_expiry.
- caderneta_predial: property tax card. Fields: cadastral_article, gross_area, usable_area, address, postal_code, parish, municipality.
- certidao_permanente: land registry certificate. Fields: cadastral_article, gross_area, usable_area, address, parish, municipality.
- certificado_energetico: energy certificate. Field: energy_class.
- licenca_utilizacao: usage licence. No fields.
- documento_proprietario: anything else. No fields.
Never invent values. Leave a field empty when it is not legible.
Set success=false when the image is not a legible document.`
