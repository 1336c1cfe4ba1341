// Package seed holds the demo dataset shown when the backend is unreachable
// or has nothing to offer on first load.
package seed

import "github.com/hongminglow/lending-console/internal/models"

// Customers returns a fresh copy of the demo customers.
func Customers() []models.Customer {
	return []models.Customer{
		customer("1", "Kwame Mensah", "024 123 4567", "kwame@example.com"),
		customer("2", "Ama Boateng", "020 987 6543", "ama@example.com"),
		customer("3", "Kojo Asare", "055 456 7890", "kojo@example.com"),
		customer("4", "Kakra", "024 111 2222", "kakra@gmail.com"),
		customer("5", "Ezekiel", "020 333 4444", "ez@gmail.com"),
		customer("6", "Panin", "055 555 6666", "panin@gmail.com"),
		customer("7", "Lamech", "024 777 8888", "lae@gmail.com"),
		customer("8", "Gideon", "020 999 0000", "gid@gmail.com"),
	}
}

// Loans returns a fresh copy of the demo loans.
func Loans() []models.Loan {
	return []models.Loan{
		loan("1", "Kwame Mensah", 5000, 5.5, 12, models.LoanActive, "2024-01-15"),
		loan("2", "Ama Boateng", 3000, 6.0, 6, models.LoanCompleted, "2024-02-20"),
		loan("3", "Kojo Asare", 10000, 5.0, 24, models.LoanActive, "2024-03-10"),
		loan("4", "Kakra", 7500, 5.8, 18, models.LoanActive, "2024-04-05"),
	}
}

// Transactions returns a fresh copy of the demo transactions.
func Transactions() []models.Transaction {
	return []models.Transaction{
		transaction("1", "1", 1000, models.Repayment, "2024-02-15"),
		transaction("2", "1", 500, models.Repayment, "2024-03-15"),
		transaction("3", "2", 3000, models.Disbursement, "2024-02-20"),
		transaction("4", "3", 10000, models.Disbursement, "2024-03-10"),
		transaction("5", "4", 7500, models.Disbursement, "2024-04-05"),
	}
}

func customer(id, name, phone, email string) models.Customer {
	return models.Customer{
		Identity: models.Identity{ID: models.ID(id)},
		Name:     name,
		Phone:    phone,
		Email:    email,
	}
}

func loan(id, customer string, amount, rate float64, term int, status models.LoanStatus, date string) models.Loan {
	return models.Loan{
		Identity:     models.Identity{ID: models.ID(id)},
		Customer:     customer,
		Amount:       amount,
		InterestRate: rate,
		Term:         term,
		Status:       status,
		Date:         date,
	}
}

func transaction(id, loanID string, amount float64, typ models.TransactionType, date string) models.Transaction {
	return models.Transaction{
		Identity: models.Identity{ID: models.ID(id)},
		LoanID:   models.ID(loanID),
		Amount:   amount,
		Type:     typ,
		Date:     date,
	}
}
