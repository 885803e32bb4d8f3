package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/maheshrc27/postflow-publisher/internal/models"
)

var (
	ErrNoCredentials    = errors.New("no active credentials")
	ErrNoMedia          = errors.New("no media to publish")
	ErrUnsupportedMedia = errors.New("media type not supported by platform")
	ErrNoContent        = errors.New("no marketing content for platform")
	ErrTimeout          = errors.New("timed out waiting for platform")
)

// ProtocolError reports a failed exchange with a platform API.
type ProtocolError struct {
	Platform   models.Platform
	StatusCode int
	Detail     string
	Err        error
}

func (e *ProtocolError) Error() string {
	msg := fmt.Sprintf("%s: ", e.Platform)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf("status %d: ", e.StatusCode)
	}
	if e.Detail != "" {
		msg += e.Detail
	} else if e.Err != nil {
		msg += e.Err.Error()
	}
	return msg
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

func protocolErr(platform models.Platform, err error) error {
	return &ProtocolError{Platform: platform, Err: err}
}

// OutcomeFromError maps an adapter error to the recorded failure outcome.
func OutcomeFromError(err error) models.Outcome {
	var pe *ProtocolError
	switch {
	case errors.Is(err, ErrNoCredentials):
		return models.Failure(models.ReasonNoCredentials, "")
	case errors.Is(err, ErrNoMedia):
		return models.Failure(models.ReasonNoMedia, "")
	case errors.Is(err, ErrUnsupportedMedia):
		return models.Failure(models.ReasonUnsupportedMedia, err.Error())
	case errors.Is(err, ErrNoContent):
		return models.Failure(models.ReasonNoContent, "")
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return models.Failure(models.ReasonTimeout, err.Error())
	case errors.As(err, &pe):
		return models.Failure(models.ReasonProtocolError, pe.Error())
	}
	return models.Failure(models.ReasonProtocolError, err.Error())
}
