// Package domain provides core business rules for the acquisition bounded context:
// the checklist vocabulary, the shared lifecycle state machine, the workflow
// entities and the OCR field mapping.
package domain

import "strings"

// DocumentType is a checklist document type. Values outside the vocabulary
// never leave ParseDocumentType; they collapse into DocGenericOwner.
type DocumentType string

const (
	DocIDFront              DocumentType = "cc_frente"
	DocIDBack               DocumentType = "cc_verso"
	DocPropertyTaxCard      DocumentType = "caderneta_predial"
	DocPermanentCertificate DocumentType = "certidao_permanente"
	DocUsageLicense         DocumentType = "licenca_utilizacao"
	DocEnergyCertificate    DocumentType = "certificado_energetico"
	DocGenericOwner         DocumentType = "documento_proprietario"
)

// ChecklistOrder is the fixed display order of the checklist.
var ChecklistOrder = []DocumentType{
	DocIDFront,
	DocIDBack,
	DocPropertyTaxCard,
	DocPermanentCertificate,
	DocUsageLicense,
	DocEnergyCertificate,
	DocGenericOwner,
}

var documentLabels = map[DocumentType]string{
	DocIDFront:              "Cartão de Cidadão (frente)",
	DocIDBack:               "Cartão de Cidadão (verso)",
	DocPropertyTaxCard:      "Caderneta Predial",
	DocPermanentCertificate: "Certidão Permanente",
	DocUsageLicense:         "Licença de Utilização",
	DocEnergyCertificate:    "Certificado Energético",
	DocGenericOwner:         "Documento do Proprietário",
}

// documentAliases maps the spellings seen from the app and from the
// extraction model onto the vocabulary.
var documentAliases = map[string]DocumentType{
	"cc_front":                     DocIDFront,
	"id_front":                     DocIDFront,
	"cartao_cidadao_frente":        DocIDFront,
	"cc_back":                      DocIDBack,
	"id_back":                      DocIDBack,
	"cartao_cidadao_verso":         DocIDBack,
	"caderneta":                    DocPropertyTaxCard,
	"property_tax_card":            DocPropertyTaxCard,
	"certidao":                     DocPermanentCertificate,
	"certidao_registo_predial":     DocPermanentCertificate,
	"permanent_certificate":        DocPermanentCertificate,
	"licenca":                      DocUsageLicense,
	"usage_license":                DocUsageLicense,
	"licenca_de_utilizacao":        DocUsageLicense,
	"certificado_energia":          DocEnergyCertificate,
	"energy_certificate":           DocEnergyCertificate,
	"ce":                           DocEnergyCertificate,
	"generic":                      DocGenericOwner,
	"outro":                        DocGenericOwner,
	"other":                        DocGenericOwner,
	"generic_owner_document":       DocGenericOwner,
	"documento_do_proprietario":    DocGenericOwner,
	"documento_identificacao_dono": DocGenericOwner,
}

// ParseDocumentType maps any raw type string onto the vocabulary.
// Unknown or empty values return DocGenericOwner.
func ParseDocumentType(raw string) DocumentType {
	key := normalizeKey(raw)
	if key == "" {
		return DocGenericOwner
	}
	candidate := DocumentType(key)
	if _, ok := documentLabels[candidate]; ok {
		return candidate
	}
	if alias, ok := documentAliases[key]; ok {
		return alias
	}
	return DocGenericOwner
}

// IsKnownDocumentType reports whether raw names a vocabulary entry or a known alias.
func IsKnownDocumentType(raw string) bool {
	key := normalizeKey(raw)
	if _, ok := documentLabels[DocumentType(key)]; ok {
		return true
	}
	_, ok := documentAliases[key]
	return ok
}

// Label returns the checklist display label.
func (t DocumentType) Label() string {
	if label, ok := documentLabels[t]; ok {
		return label
	}
	return documentLabels[DocGenericOwner]
}

// IsIdentity reports whether the type is a side of the citizen card.
func (t DocumentType) IsIdentity() bool {
	return t == DocIDFront || t == DocIDBack
}

func normalizeKey(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	return strings.NewReplacer("-", "_", " ", "_").Replace(key)
}
