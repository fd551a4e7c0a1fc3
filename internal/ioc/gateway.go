package ioc

import (
	"time"

	"gitee.com/flycash/labour-tracker/internal/domain"
	"gitee.com/flycash/labour-tracker/internal/pkg/ratelimit"
	"gitee.com/flycash/labour-tracker/internal/service/gateway"
	"gitee.com/flycash/labour-tracker/internal/service/gateway/breaker"
	"gitee.com/flycash/labour-tracker/internal/service/gateway/console"
	"gitee.com/flycash/labour-tracker/internal/service/gateway/email"
	"gitee.com/flycash/labour-tracker/internal/service/gateway/metrics"
	ratelimitgw "gitee.com/flycash/labour-tracker/internal/service/gateway/ratelimit"
	"gitee.com/flycash/labour-tracker/internal/service/gateway/sms"
	"gitee.com/flycash/labour-tracker/internal/service/gateway/sms/client"
	"gitee.com/flycash/labour-tracker/internal/service/gateway/tracing"
	"gitee.com/flycash/labour-tracker/internal/service/gateway/whatsapp"
	"gitee.com/flycash/labour-tracker/internal/service/template"
	"github.com/gotomicro/ego/core/econf"
	"github.com/gotomicro/ego/core/elog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

func InitTemplateCatalog() *template.Catalog {
	catalog, err := template.DefaultCatalog()
	if err != nil {
		panic(err)
	}
	return catalog
}

type gatewayConfig struct {
	// Console logs every channel instead of delivering, for local runs.
	Console  bool             `yaml:"console"`
	Breaker  breaker.Config   `yaml:"breaker"`
	Email    *email.Config    `yaml:"email"`
	WhatsApp *whatsapp.Config `yaml:"whatsapp"`
	SMS      struct {
		Aliyun *struct {
			RegionID        string `yaml:"regionId"`
			AccessKeyID     string `yaml:"accessKeyId"`
			AccessKeySecret string `yaml:"accessKeySecret"`
			SignName        string `yaml:"signName"`
		} `yaml:"aliyun"`
		Tencent *struct {
			RegionID  string `yaml:"regionId"`
			SecretID  string `yaml:"secretId"`
			SecretKey string `yaml:"secretKey"`
			AppID     string `yaml:"appId"`
			SignName  string `yaml:"signName"`
		} `yaml:"tencent"`
	} `yaml:"sms"`

	// RateLimit applies per channel. A zero rate disables it.
	RateLimit struct {
		Interval time.Duration `yaml:"interval"`
		Rate     int           `yaml:"rate"`
	} `yaml:"rateLimit"`
}

// InitGatewayRouter registers a gateway for every configured channel. Each one
// is wrapped with metrics, tracing, an optional rate limit and a circuit
// breaker, outermost first. Channels left
// unconfigured have no gateway and their notifications fail until one is added.
func InitGatewayRouter(catalog *template.Catalog, rdb *redis.Client, reg prometheus.Registerer) *gateway.Router {
	var cfg gatewayConfig
	if err := econf.UnmarshalKey("gateway", &cfg); err != nil {
		panic(err)
	}
	collectors := metrics.NewCollectors(reg)
	router := gateway.NewRouter()
	var limiter ratelimit.Limiter
	if cfg.RateLimit.Rate > 0 {
		limiter = ratelimit.NewRedisSlidingWindowLimiter(rdb, cfg.RateLimit.Interval, cfg.RateLimit.Rate)
	}
	register := func(channel domain.Channel, g gateway.Gateway) {
		g = breaker.NewGateway(g, cfg.Breaker)
		if limiter != nil {
			g = ratelimitgw.NewGateway(g, limiter, channel)
		}
		g = tracing.NewGateway(g)
		router.RegisterGateway(channel, metrics.NewGateway(channel, g, collectors))
	}

	if cfg.Console {
		c := console.NewGateway(catalog)
		for _, channel := range []domain.Channel{domain.ChannelEmail, domain.ChannelSMS, domain.ChannelWhatsApp} {
			register(channel, c)
		}
		return router
	}

	if cfg.Email != nil {
		register(domain.ChannelEmail, email.NewSendGridGateway(*cfg.Email, catalog))
	}
	if cfg.WhatsApp != nil {
		register(domain.ChannelWhatsApp, whatsapp.NewTwilioGateway(*cfg.WhatsApp, catalog))
	}

	vendors := make([]sms.Vendor, 0, 2)
	if c := cfg.SMS.Aliyun; c != nil {
		cli, err := client.NewAliyunSMS(c.RegionID, c.AccessKeyID, c.AccessKeySecret)
		if err != nil {
			panic(err)
		}
		vendors = append(vendors, sms.Vendor{Name: "aliyun", SignName: c.SignName, Client: cli})
	}
	if c := cfg.SMS.Tencent; c != nil {
		cli, err := client.NewTencentCloudSMS(c.RegionID, c.SecretID, c.SecretKey, c.AppID)
		if err != nil {
			panic(err)
		}
		vendors = append(vendors, sms.Vendor{Name: "tencent", SignName: c.SignName, Client: cli})
	}
	if len(vendors) > 0 {
		register(domain.ChannelSMS, sms.NewGateway(catalog, vendors...))
	}

	elog.DefaultLogger.Info("notification gateways registered", elog.Any("channels", router.Channels()))
	return router
}
