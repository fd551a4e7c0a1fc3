package client

import (
	"encoding/json"
	"fmt"
	"strings"

	openapi "github.com/alibabacloud-go/darabonba-openapi/v2/client"
	dysmsapi "github.com/alibabacloud-go/dysmsapi-20170525/v4/client"
	"github.com/alibabacloud-go/tea/tea"
)

var _ Client = (*AliyunSMS)(nil)

type AliyunSMS struct {
	client *dysmsapi.Client
}

func NewAliyunSMS(regionID, accessKeyID, accessKeySecret string) (*AliyunSMS, error) {
	cli, err := dysmsapi.NewClient(&openapi.Config{
		AccessKeyId:     tea.String(accessKeyID),
		AccessKeySecret: tea.String(accessKeySecret),
		RegionId:        tea.String(regionID),
		Endpoint:        tea.String("dysmsapi.aliyuncs.com"),
	})
	if err != nil {
		return nil, err
	}
	return &AliyunSMS{client: cli}, nil
}

func (a *AliyunSMS) Send(req SendReq) (SendResp, error) {
	if len(req.PhoneNumbers) == 0 {
		return SendResp{}, fmt.Errorf("%w: no phone numbers", ErrInvalidParameter)
	}
	templateParam := ""
	if req.TemplateParam != nil {
		raw, err := json.Marshal(req.TemplateParam)
		if err != nil {
			return SendResp{}, fmt.Errorf("%w: %w", ErrInvalidParameter, err)
		}
		templateParam = string(raw)
	}

	response, err := a.client.SendSms(&dysmsapi.SendSmsRequest{
		PhoneNumbers:  tea.String(strings.Join(req.PhoneNumbers, ",")),
		SignName:      tea.String(req.SignName),
		TemplateCode:  tea.String(req.TemplateID),
		TemplateParam: tea.String(templateParam),
	})
	if err != nil {
		return SendResp{}, fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	body := response.Body
	if body == nil || body.Code == nil {
		return SendResp{}, fmt.Errorf("%w: empty response", ErrSendFailed)
	}
	if *body.Code != OK {
		return SendResp{}, fmt.Errorf("%w: code %s: %s", ErrSendFailed, *body.Code, tea.StringValue(body.Message))
	}

	// Aliyun reports one status for the whole batch.
	res := SendResp{
		RequestID:    tea.StringValue(body.RequestId),
		PhoneNumbers: make(map[string]SendRespStatus, len(req.PhoneNumbers)),
	}
	for _, phone := range req.PhoneNumbers {
		res.PhoneNumbers[phone] = SendRespStatus{
			Code:     *body.Code,
			Message:  tea.StringValue(body.Message),
			SerialNo: tea.StringValue(body.BizId),
		}
	}
	return res, nil
}
