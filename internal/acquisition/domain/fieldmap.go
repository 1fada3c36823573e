package domain

import (
	"strconv"
	"strings"
)

// Canonical extracted field keys.
const (
	FieldName             = "name"
	FieldTaxID            = "tax_id"
	FieldDocumentNumber   = "document_number"
	FieldDocumentExpiry   = "document_expiry"
	FieldCadastralArticle = "cadastral_article"
	FieldGrossArea        = "gross_area"
	FieldUsableArea       = "usable_area"
	FieldAddress          = "address"
	FieldPostalCode       = "postal_code"
	FieldParish           = "parish"
	FieldMunicipality     = "municipality"
	FieldEnergyClass      = "energy_class"
)

// PartyPatch holds identity values for one party. Nil means untouched.
type PartyPatch struct {
	Name           *string `json:"name,omitempty"`
	TaxID          *string `json:"taxId,omitempty"`
	DocumentNumber *string `json:"documentNumber,omitempty"`
	DocumentExpiry *string `json:"documentExpiry,omitempty"`
}

// PropertyPatch holds property descriptor values. Nil means untouched.
type PropertyPatch struct {
	CadastralArticle *string  `json:"cadastralArticle,omitempty"`
	GrossAreaM2      *float64 `json:"grossAreaM2,omitempty"`
	UsableAreaM2     *float64 `json:"usableAreaM2,omitempty"`
	Address          *string  `json:"address,omitempty"`
	PostalCode       *string  `json:"postalCode,omitempty"`
	Parish           *string  `json:"parish,omitempty"`
	Municipality     *string  `json:"municipality,omitempty"`
	EnergyClass      *string  `json:"energyClass,omitempty"`
}

// ContractPatch is the form update produced by one OCR result.
type ContractPatch struct {
	Party1   *PartyPatch   `json:"party1,omitempty"`
	Party2   *PartyPatch   `json:"party2,omitempty"`
	Property PropertyPatch `json:"property"`
}

// IsEmpty reports whether the patch writes nothing.
func (p ContractPatch) IsEmpty() bool {
	return p.Party1 == nil && p.Party2 == nil && p.Property == (PropertyPatch{})
}

// MapExtraction is the single field-mapping function. It branches on the
// detected type only; the caller's requested type never reaches it.
func MapExtraction(detected DocumentType, target Party, fields map[string]string) ContractPatch {
	var patch ContractPatch
	switch detected {
	case DocIDFront, DocIDBack:
		pp := &PartyPatch{
			Name:           stringField(fields, FieldName),
			TaxID:          stringField(fields, FieldTaxID),
			DocumentNumber: stringField(fields, FieldDocumentNumber),
			DocumentExpiry: stringField(fields, FieldDocumentExpiry),
		}
		if *pp == (PartyPatch{}) {
			return patch
		}
		if target == Party2 {
			patch.Party2 = pp
		} else {
			patch.Party1 = pp
		}
	case DocPropertyTaxCard:
		patch.Property = PropertyPatch{
			CadastralArticle: stringField(fields, FieldCadastralArticle),
			GrossAreaM2:      areaField(fields, FieldGrossArea),
			UsableAreaM2:     areaField(fields, FieldUsableArea),
			Address:          stringField(fields, FieldAddress),
			PostalCode:       stringField(fields, FieldPostalCode),
			Parish:           stringField(fields, FieldParish),
			Municipality:     stringField(fields, FieldMunicipality),
		}
	case DocPermanentCertificate:
		patch.Property = PropertyPatch{
			CadastralArticle: stringField(fields, FieldCadastralArticle),
			GrossAreaM2:      areaField(fields, FieldGrossArea),
			UsableAreaM2:     areaField(fields, FieldUsableArea),
			Address:          stringField(fields, FieldAddress),
			Parish:           stringField(fields, FieldParish),
			Municipality:     stringField(fields, FieldMunicipality),
		}
	case DocEnergyCertificate:
		patch.Property = PropertyPatch{
			EnergyClass: stringField(fields, FieldEnergyClass),
		}
	case DocUsageLicense, DocGenericOwner:
		// filled manually
	}
	return patch
}

func stringField(fields map[string]string, key string) *string {
	v := strings.TrimSpace(fields[key])
	if v == "" {
		return nil
	}
	return &v
}

// areaField parses values like "120,5 m²" or "98.00".
func areaField(fields map[string]string, key string) *float64 {
	raw := strings.TrimSpace(fields[key])
	if raw == "" {
		return nil
	}
	raw = strings.TrimSpace(strings.NewReplacer("m²", "", "m2", "", " ", "").Replace(strings.ToLower(raw)))
	if strings.Contains(raw, ",") {
		raw = strings.ReplaceAll(strings.ReplaceAll(raw, ".", ""), ",", ".")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return nil
	}
	return &v
}
