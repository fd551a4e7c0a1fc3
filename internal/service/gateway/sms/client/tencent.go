package client

import (
	"fmt"

	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/profile"
	sms "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/sms/v20210111"
)

var _ Client = (*TencentCloudSMS)(nil)

type TencentCloudSMS struct {
	client *sms.Client
	appID  string
}

func NewTencentCloudSMS(regionID, secretID, secretKey, appID string) (*TencentCloudSMS, error) {
	cpf := profile.NewClientProfile()
	cpf.HttpProfile.Endpoint = "sms.tencentcloudapi.com"
	cli, err := sms.NewClient(common.NewCredential(secretID, secretKey), regionID, cpf)
	if err != nil {
		return nil, err
	}
	return &TencentCloudSMS{client: cli, appID: appID}, nil
}

func (t *TencentCloudSMS) Send(req SendReq) (SendResp, error) {
	if len(req.PhoneNumbers) == 0 {
		return SendResp{}, fmt.Errorf("%w: no phone numbers", ErrInvalidParameter)
	}
	request := sms.NewSendSmsRequest()
	request.SmsSdkAppId = common.StringPtr(t.appID)
	request.SignName = common.StringPtr(req.SignName)
	request.TemplateId = common.StringPtr(req.TemplateID)
	request.PhoneNumberSet = common.StringPtrs(req.PhoneNumbers)
	// Tencent templates take positional parameters.
	params := make([]string, 0, len(req.TemplateParamOrder))
	for _, key := range req.TemplateParamOrder {
		params = append(params, req.TemplateParam[key])
	}
	request.TemplateParamSet = common.StringPtrs(params)

	response, err := t.client.SendSms(request)
	if err != nil {
		return SendResp{}, fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	if response.Response == nil {
		return SendResp{}, fmt.Errorf("%w: empty response", ErrSendFailed)
	}

	res := SendResp{PhoneNumbers: make(map[string]SendRespStatus, len(response.Response.SendStatusSet))}
	if response.Response.RequestId != nil {
		res.RequestID = *response.Response.RequestId
	}
	for _, status := range response.Response.SendStatusSet {
		if status == nil || status.PhoneNumber == nil {
			continue
		}
		res.PhoneNumbers[*status.PhoneNumber] = SendRespStatus{
			Code:     deref(status.Code),
			Message:  deref(status.Message),
			SerialNo: deref(status.SerialNo),
		}
	}
	return res, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
