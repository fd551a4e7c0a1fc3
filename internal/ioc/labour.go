package ioc

import (
	"gitee.com/flycash/labour-tracker/internal/domain"
	"github.com/gotomicro/ego/core/econf"
)

// InitLabourPolicy overlays labour.policy on the default thresholds.
func InitLabourPolicy() domain.LabourPolicy {
	policy := domain.DefaultLabourPolicy()
	if err := econf.UnmarshalKey("labour.policy", &policy); err != nil {
		panic(err)
	}
	return policy
}
