package client

import "errors"

const OK = "OK"

var (
	ErrInvalidParameter = errors.New("invalid sms parameter")
	ErrSendFailed       = errors.New("sms send failed")
)

// Client is one SMS vendor.
type Client interface {
	Send(req SendReq) (SendResp, error)
}

type SendReq struct {
	PhoneNumbers []string
	SignName     string
	// TemplateID is the vendor's pre-approved template code.
	TemplateID    string
	TemplateParam map[string]string
	// TemplateParamOrder fixes the positional order for vendors without named parameters.
	TemplateParamOrder []string
}

type SendRespStatus struct {
	Code    string
	Message string
	// SerialNo is the vendor's id for the message, when there is one.
	SerialNo string
}

type SendResp struct {
	RequestID    string
	PhoneNumbers map[string]SendRespStatus
}
