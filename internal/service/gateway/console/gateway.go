// Copyright 2023 ecodeclub
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package console

import (
	"context"

	"gitee.com/flycash/labour-tracker/internal/domain"
	"gitee.com/flycash/labour-tracker/internal/service/template"
	"github.com/gotomicro/ego/core/elog"
)

// Gateway writes notifications to the log instead of delivering them.
// Used for local runs and for channels without provider credentials.
type Gateway struct {
	catalog *template.Catalog
	logger  *elog.Component
}

func NewGateway(catalog *template.Catalog) *Gateway {
	return &Gateway{
		catalog: catalog,
		logger:  elog.DefaultLogger,
	}
}

func (g *Gateway) Send(_ context.Context, n domain.Notification) (domain.SendResult, error) {
	msg, err := g.catalog.Render(n.Template, n.Data)
	if err != nil {
		return domain.SendResult{}, err
	}
	g.logger.Info("console notification",
		elog.String("id", n.IDString()),
		elog.String("channel", n.Channel.String()),
		elog.String("destination", n.Destination),
		elog.String("subject", msg.Subject),
		elog.String("body", msg.Body))
	return domain.SendResult{
		Success:    true,
		Status:     domain.NotificationStatusSuccess,
		ExternalID: "console-" + n.IDString(),
	}, nil
}
