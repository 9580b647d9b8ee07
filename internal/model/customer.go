package model

// Customer is customer model entity
type Customer struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Email string  `json:"email"`
	Age   float64 `json:"age"`
}

// CustomerPatch holds fields supplied for partial update, nil means field is not touched
type CustomerPatch struct {
	Name  *string
	Email *string
	Age   *float64
}

// IsEmpty reports whether patch carries no fields at all
func (p *CustomerPatch) IsEmpty() bool {
	return p.Name == nil && p.Email == nil && p.Age == nil
}

// HasBlankField reports whether any supplied field is empty, such values violate required constraint
func (p *CustomerPatch) HasBlankField() bool {
	if p.Name != nil && *p.Name == "" {
		return true
	}

	if p.Email != nil && *p.Email == "" {
		return true
	}

	return p.Age != nil && *p.Age == 0
}

// Apply merges patch into customer copy
func (p *CustomerPatch) Apply(c Customer) Customer {
	if p.Name != nil {
		c.Name = *p.Name
	}

	if p.Email != nil {
		c.Email = *p.Email
	}

	if p.Age != nil {
		c.Age = *p.Age
	}
	return c
}
