package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New()

// CreateNodeRequest represents the request body for creating a node
type CreateNodeRequest struct {
	Name     string     `json:"name" validate:"required"`
	ParentID *uuid.UUID `json:"parentId,omitempty"`
}

// Validate validates the create node request. The length limit applies to
// the trimmed name, as it does for the node itself.
func (r *CreateNodeRequest) Validate() error {
	if err := translate(validate.Struct(r)); err != nil {
		return err
	}
	_, err := NormalizeName(r.Name)
	return err
}

// LoginRequest represents the request body for obtaining an access token
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=100"`
	Password string `json:"password" validate:"required,max=200"`
}

// Validate validates the login request
func (r *LoginRequest) Validate() error {
	return translate(validate.Struct(r))
}

// TokenResponse is returned by a successful login
type TokenResponse struct {
	AccessToken      string `json:"accessToken"`
	ExpiresInSeconds int    `json:"expiresInSeconds"`
}

// translate turns validator errors into a ValidationError for the first failing field
func translate(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{Field: "request", Message: err.Error()}
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
	switch fe.Tag() {
	case "required":
		return &ValidationError{Field: field, Message: fmt.Sprintf("%s is required", field)}
	case "max":
		return &ValidationError{Field: field, Message: fmt.Sprintf("%s must be at most %s characters", field, fe.Param())}
	default:
		return &ValidationError{Field: field, Message: fmt.Sprintf("%s failed %s validation", field, fe.Tag())}
	}
}
