package http

import (
	"github.com/go-api-verification/internal/application/verification"
	"go.uber.org/zap"
)

// Deps holds the application services and infrastructure the router needs.
type Deps struct {
	Verification verification.Service
	Logger       *zap.Logger
}
