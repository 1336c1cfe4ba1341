package models

// Customer is a borrower record.
type Customer struct {
	Identity
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// CustomerFields is the editable subset sent on create and update.
type CustomerFields struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// Customer builds an unsaved record from the form fields.
func (f CustomerFields) Customer() Customer {
	return Customer{Name: f.Name, Phone: f.Phone, Email: f.Email}
}
