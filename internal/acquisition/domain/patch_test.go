package domain

// applyPatch writes every non-nil patch value onto c, the way the client
// form merges a capture result.
func applyPatch(c *MediationContract, p ContractPatch) {
	if p.Party1 != nil {
		applyParty(&c.Party1, *p.Party1)
	}
	if p.Party2 != nil {
		if c.Party2 == nil {
			c.Party2 = &ContractParty{}
		}
		applyParty(c.Party2, *p.Party2)
	}
	pr := p.Property
	setString(&c.CadastralArticle, pr.CadastralArticle)
	setString(&c.Address, pr.Address)
	setString(&c.PostalCode, pr.PostalCode)
	setString(&c.Parish, pr.Parish)
	setString(&c.Municipality, pr.Municipality)
	setString(&c.EnergyClass, pr.EnergyClass)
	if pr.GrossAreaM2 != nil {
		c.GrossAreaM2 = pr.GrossAreaM2
	}
	if pr.UsableAreaM2 != nil {
		c.UsableAreaM2 = pr.UsableAreaM2
	}
}

func applyParty(dst *ContractParty, p PartyPatch) {
	setString(&dst.Name, p.Name)
	setString(&dst.TaxID, p.TaxID)
	setString(&dst.DocumentNumber, p.DocumentNumber)
	setString(&dst.DocumentExpiry, p.DocumentExpiry)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
