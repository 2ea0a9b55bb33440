// Package domain holds DTOs for bridge http and service contracts
package domain

import perr "hostbridge/internal/platform/errors"

// CallInput addresses one invocation by registry ids
type CallInput struct {
	Module int   `json:"module" validate:"min=0" example:"0"`
	Method int   `json:"method" validate:"min=0" example:"1"`
	Args   []any `json:"args,omitempty"`
}

// BatchInput is an ordered set of calls dispatched as one unit
type BatchInput struct {
	Calls []CallInput `json:"calls" validate:"required,min=1,max=1024,dive"`
}

// CallResult reports the outcome of one call in a batch
type CallResult struct {
	Index int            `json:"index" example:"0"`
	OK    bool           `json:"ok" example:"true"`
	Code  perr.ErrorCode `json:"code,omitempty" example:"13"`
	Error string         `json:"error,omitempty"`
}

// BatchOutput summarizes a dispatched batch
type BatchOutput struct {
	BatchID string       `json:"batch_id" example:"0b7fa36e-9d1c-47a5-8f07-1d8f9b6f2f01"`
	Failed  int          `json:"failed" example:"0"`
	Results []CallResult `json:"results"`
}

// ModuleInfo is a diagnostic listing entry for one registered module
type ModuleInfo struct {
	ModuleID int    `json:"module_id" example:"0"`
	Name     string `json:"name" example:"Timing"`
	Methods  int    `json:"methods" example:"2"`
}
