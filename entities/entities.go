package entities

import (
	"bytes"
	"encoding/json"
	"time"
)

// ID is an upstream identifier. The investments service emits ids both as
// JSON strings and as numbers, so both decode into the same value.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = ID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

type Investment struct {
	ID              ID        `json:"id"`
	UserID          ID        `json:"userId"`
	FirstName       string    `json:"firstName"`
	LastName        string    `json:"lastName"`
	Date            string    `json:"date"`
	InvestmentTotal float64   `json:"investmentTotal"`
	Holdings        []Holding `json:"holdings"`
}

type Holding struct {
	ID                   ID      `json:"id"`
	InvestmentPercentage float64 `json:"investmentPercentage"`
}

// Company is a holding account owned by the financial companies service.
type Company struct {
	ID       ID     `json:"id"`
	Name     string `json:"name"`
	Address  string `json:"address,omitempty"`
	Postcode string `json:"postcode,omitempty"`
	FRN      string `json:"frn,omitempty"`
}

// HoldingValue is one computed row of the admin report.
type HoldingValue struct {
	UserID    ID      `json:"userId"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Date      string  `json:"date"`
	Holding   string  `json:"holding"`
	Value     float64 `json:"value"`
}

const EventReportExported = "REPORT_EXPORTED"

type ReportEvent struct {
	EventType  string    `json:"event_type"`
	ReportID   string    `json:"report_id"`
	Rows       int       `json:"rows"`
	TotalValue float64   `json:"total_value"`
	Timestamp  time.Time `json:"timestamp"`
}

// ReportReply is the body the report worker sends back to the requester.
type ReportReply struct {
	Rows  []HoldingValue `json:"rows"`
	Error string         `json:"error,omitempty"`
}
