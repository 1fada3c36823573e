package ocr

import (
	"strings"
	"testing"

	"acquisition_backend/internal/acquisition/domain"
)

func TestSaveExtractionInputDropsEmptyFields(t *testing.T) {
	in := SaveExtractionInput{Name: "Ana Silva", TaxID: " ", EnergyClass: "A+"}
	fields := in.fields()
	if len(fields) != 2 || fields[domain.FieldName] != "Ana Silva" || fields[domain.FieldEnergyClass] != "A+" {
		t.Fatalf("unexpected fields %v", fields)
	}
}

func TestPromptCarriesContractContext(t *testing.T) {
	prompt := buildExtractionPrompt(domain.DocPropertyTaxCard, contractContext(domain.MediationContract{
		Party1:           domain.ContractParty{Name: "Ana Silva"},
		CadastralArticle: "U-1",
	}))
	if !strings.Contains(prompt, "caderneta_predial") || !strings.Contains(prompt, "Ana Silva") {
		t.Fatalf("prompt missing context: %s", prompt)
	}
	if strings.Contains(buildExtractionPrompt(domain.DocIDFront, ""), "on file") {
		t.Fatal("standalone prompt must not mention contract data")
	}
}
