package analysis

import (
	"errors"

	"github.com/Skufu/rxguard/internal/llm"
)

const DefaultLanguage = "English"

var (
	ErrEmptyRequest    = errors.New("please provide an image or a description")
	ErrAllModelsFailed = errors.New("analysis failed")
)

// Request is one analysis submission.
type Request struct {
	Images     []llm.Image
	UserText   string
	Language   string
	Conditions string
	PatientID  string
	Mock       bool
}

// RawResult is the shape the model is asked to return.
type RawResult struct {
	MedicinesFound []string `json:"medicines_found"`
	RiskLevel      string   `json:"risk_level"`
	RiskColor      string   `json:"risk_color"`
	AlertMessage   string   `json:"alert_message"`
	Alternatives   []string `json:"alternatives"`
	Disclaimer     string   `json:"disclaimer,omitempty"`
}

// Result is what clients receive.
type Result struct {
	MedicinesFound []string `json:"medicines_found"`
	RiskLevel      string   `json:"risk_level"`
	RiskColor      string   `json:"risk_color"`
	RiskColorHex   string   `json:"risk_color_hex"`
	AlertMessage   string   `json:"alert_message"`
	Alternatives   []string `json:"alternatives"`
	Disclaimer     string   `json:"disclaimer,omitempty"`
}
