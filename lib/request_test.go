package lib

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
)

type signupBody struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func TestExtractAndValidateBody(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"email":"ava@example.com","password":"longenough"}`))

	body, err := ExtractAndValidateBody[signupBody](r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body.Email != "ava@example.com" {
		t.Fatalf("Email = %q", body.Email)
	}
}

func TestExtractAndValidateBodyErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{name: "empty body", body: "", wantErr: ErrEmptyBody},
		{name: "broken json", body: `{"email":`, wantErr: ErrMalformedBody},
		{name: "unknown field", body: `{"email":"a@b.co","password":"longenough","admin":true}`, wantErr: ErrMalformedBody},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/", strings.NewReader(tt.body))
			if _, err := ExtractAndValidateBody[signupBody](r); !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestExtractAndValidateBodyReportsJSONFieldNames(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"email":"nope","password":"short"}`))

	_, err := ExtractAndValidateBody[signupBody](r)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}

	fields := map[string]string{}
	for _, fe := range ve.Errors {
		fields[fe.Field] = fe.Message
	}
	if fields["email"] != "must be a valid email address" {
		t.Errorf("email message = %q", fields["email"])
	}
	if fields["password"] != "must be at least 8 characters" {
		t.Errorf("password message = %q", fields["password"])
	}
}

type lineBody struct {
	Quantity int      `json:"quantity" validate:"min=1,max=99"`
	Tags     []string `json:"tags" validate:"max=2"`
}

func TestValidateNumericAndSliceBounds(t *testing.T) {
	err := Validate(lineBody{Quantity: 0, Tags: []string{"a", "b", "c"}})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}

	fields := map[string]string{}
	for _, fe := range ve.Errors {
		fields[fe.Field] = fe.Message
	}
	if fields["quantity"] != "must be at least 1" {
		t.Errorf("quantity message = %q", fields["quantity"])
	}
	if fields["tags"] != "must contain at most 2 items" {
		t.Errorf("tags message = %q", fields["tags"])
	}
}
