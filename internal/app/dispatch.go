package app

import (
	"errors"
	"log/slog"

	"github.com/ayusman/nodwatch/internal/plugin"
	"github.com/ayusman/nodwatch/internal/store"
)

// dispatch runs the plugin actions bound to e's kind. Stored bindings take precedence;
// without any, every plugin whose manifest lists the kind runs its default action.
func (a *App) dispatch(e *store.Event) {
	if a.config.Plugins == nil {
		return
	}

	actions, err := a.config.Store.Actions().EnabledForKind(e.Kind)
	if err != nil {
		slog.Error("failed to load actions", "kind", e.Kind, "err", err)
		return
	}

	if len(actions) == 0 {
		for _, p := range a.config.Plugins.ForGesture(e.Kind) {
			a.run(p, &plugin.Request{
				Action:     p.Manifest.DefaultAction(e.Kind),
				Gesture:    e.Kind,
				DetectedAt: e.DetectedAt,
			})
		}
		return
	}

	for _, act := range actions {
		p, err := a.config.Plugins.Get(act.PluginName)
		if err != nil {
			slog.Warn("bound plugin not found", "plugin", act.PluginName, "action", act.ActionName)
			a.config.Metrics.PluginRun(act.PluginName, err)
			continue
		}
		a.run(p, &plugin.Request{
			Action:     act.ActionName,
			Gesture:    e.Kind,
			DetectedAt: e.DetectedAt,
			Config:     act.Config,
		})
	}
}

// run executes one plugin request in the background.
func (a *App) run(p *plugin.Plugin, req *plugin.Request) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()

		resp, err := a.config.Executor.Execute(a.ctx, p, req)
		if err == nil && !resp.Success {
			err = errors.New(resp.Error)
		}
		a.config.Metrics.PluginRun(p.Manifest.Name, err)

		if err != nil {
			slog.Warn("plugin action failed", "plugin", p.Manifest.Name, "action", req.Action, "err", err)
			return
		}
		slog.Debug("plugin action done", "plugin", p.Manifest.Name, "action", req.Action)
	}()
}
