package models

type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "success"
	OutcomeFailure OutcomeStatus = "failure"
)

type Variant string

const (
	VariantText  Variant = "text"
	VariantImage Variant = "image"
	VariantVideo Variant = "video"
)

type FailureReason string

const (
	ReasonNoCredentials       FailureReason = "no_credentials"
	ReasonNoMedia             FailureReason = "no_media"
	ReasonNoContent           FailureReason = "no_content"
	ReasonUnsupportedPlatform FailureReason = "unsupported_platform"
	ReasonUnsupportedMedia    FailureReason = "unsupported_media"
	ReasonProtocolError       FailureReason = "protocol_error"
	ReasonTimeout             FailureReason = "timeout"
	ReasonProductNotFound     FailureReason = "product_not_found"
)

// Outcome is the recorded result of one platform publish attempt.
type Outcome struct {
	Status   OutcomeStatus `json:"status"`
	Variant  Variant       `json:"variant,omitempty"`
	Reason   FailureReason `json:"reason,omitempty"`
	Detail   string        `json:"detail,omitempty"`
	RemoteID string        `json:"remote_id,omitempty"`
}

func Success(variant Variant, remoteID string) Outcome {
	return Outcome{Status: OutcomeSuccess, Variant: variant, RemoteID: remoteID}
}

func Failure(reason FailureReason, detail string) Outcome {
	return Outcome{Status: OutcomeFailure, Reason: reason, Detail: detail}
}

func (o Outcome) OK() bool {
	return o.Status == OutcomeSuccess
}
