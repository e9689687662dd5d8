package actions

import (
	"context"

	"github.com/BabaVossRS3/FlowForge/pkg/actions/httprequest"
	"github.com/BabaVossRS3/FlowForge/pkg/models"
	"github.com/BabaVossRS3/FlowForge/pkg/template"
	"github.com/BabaVossRS3/FlowForge/pkg/workflow"
)

func (d *Dispatcher) httpRequest(ctx context.Context, req *workflow.NodeRequest, cfg *models.HTTPAction) (*workflow.NodeOutcome, error) {
	const failed = "HTTP request failed"

	action, err := httprequest.NewAction(cfg)
	if err != nil {
		return nil, workflow.NewActionError(failed, err)
	}

	resp, err := action.Execute(ctx, d.client, template.Data(req.TriggerData, req.Results), d.loggerFrom(ctx))
	if err != nil {
		return nil, workflow.NewActionError(failed, err)
	}

	return done(map[string]any{
		"message":    "HTTP request executed",
		"statusCode": resp.StatusCode,
		"url":        resp.URL,
	}), nil
}
