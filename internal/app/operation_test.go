package app

import (
	"errors"
	"testing"
	"time"
)

func TestNewOperation(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name      string
		operation string
	}{
		{name: "daemon", operation: "Run"},
		{name: "admin command", operation: "AddWatch"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := NewOperation(tt.operation, now)

			if op.Name != tt.operation {
				t.Errorf("Name = %q, want %q", op.Name, tt.operation)
			}
			if op.ID != "20240115T103000Z" {
				t.Errorf("ID = %q, want %q", op.ID, "20240115T103000Z")
			}
			if op.Status != "success" {
				t.Errorf("Status = %q, want %q", op.Status, "success")
			}
			if op.Failed() {
				t.Error("Failed() = true for new operation")
			}
		})
	}
}

func TestOperation_Record(t *testing.T) {
	tests := []struct {
		name string
		errs []error
		want bool
	}{
		{name: "no errors", errs: []error{nil, nil}, want: false},
		{name: "one error", errs: []error{nil, errors.New("boom")}, want: true},
		{name: "error then success stays failed", errs: []error{errors.New("boom"), nil}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := NewOperation("Check", time.Now())
			for _, err := range tt.errs {
				if got := op.Record(err); got != err {
					t.Errorf("Record() = %v, want %v", got, err)
				}
			}
			if got := op.Failed(); got != tt.want {
				t.Errorf("Failed() = %v, want %v", got, tt.want)
			}
		})
	}
}
