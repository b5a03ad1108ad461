package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	Credit TransactionType = "Credit"
	Debit  TransactionType = "Debit"
)

// MaxDescriptionLength bounds the description, in characters.
const MaxDescriptionLength = 200

type (
	TransactionType string

	// Transaction is a single dated money movement. Value is always positive,
	// Type carries the sign.
	Transaction struct {
		ID          int64           `json:"id"`
		Date        Date            `json:"date"`
		Description string          `json:"description"`
		Value       Money           `json:"value"`
		Type        TransactionType `json:"type"`
		CreatedAt   time.Time       `json:"createdAt"`
	}

	// Draft is a validated transaction that has not been stored yet.
	Draft struct {
		Date        Date
		Description string
		Value       Money
		Type        TransactionType
	}

	// Candidate is the raw, wire-level input for a new transaction.
	Candidate struct {
		Date        string // DD/MM/YYYY
		Description string
		Value       string
		Type        string
	}
)

var (
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidValue     = errors.New("invalid value")
	ErrEmptyDescription = errors.New("empty description")
	ErrLongDescription  = errors.New("description too long")
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrNotFound         = errors.New("transaction not found")
)

// ParseTransactionType accepts "Credit" and "Debit" in any letter case.
func ParseTransactionType(s string) (TransactionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "credit":
		return Credit, nil
	case "debit":
		return Debit, nil
	default:
		return "", ErrInvalidType
	}
}

func (t TransactionType) Validate() error {
	if t != Credit && t != Debit {
		return ErrInvalidType
	}
	return nil
}

func (d Draft) Validate() error {
	if err := d.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(d.Description)) == 0 {
		return ErrEmptyDescription
	}
	if utf8.RuneCountInString(d.Description) > MaxDescriptionLength {
		return ErrLongDescription
	}
	if err := d.Value.Validate(); err != nil {
		return err
	}
	return d.Type.Validate()
}

// Normalize checks every field of the candidate and converts it into a Draft.
// All field problems are collected into a single *ValidationError.
func (c Candidate) Normalize() (Draft, error) {
	var verr ValidationError

	date, err := ParseWireDate(c.Date)
	if err != nil {
		verr.Add("date", "Date must be a valid calendar date in DD/MM/YYYY format.", err)
	}

	desc := strings.TrimSpace(c.Description)
	switch {
	case desc == "":
		verr.Add("description", "Description should not be empty.", ErrEmptyDescription)
	case utf8.RuneCountInString(desc) > MaxDescriptionLength:
		verr.Add("description", fmt.Sprintf("Description must be at most %d characters.", MaxDescriptionLength), ErrLongDescription)
	}

	value, err := ParseMoney(c.Value)
	if err != nil {
		verr.Add("value", "Value must be a number greater than zero.", err)
	}

	typ, err := ParseTransactionType(c.Type)
	if err != nil {
		verr.Add("type", "Type must be either 'Credit' or 'Debit'.", err)
	}

	if verr.HasErrors() {
		return Draft{}, &verr
	}
	return Draft{Date: date, Description: desc, Value: value, Type: typ}, nil
}
