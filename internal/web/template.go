package web

import (
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/sweeney/rockpi-quad/internal/display"
	"github.com/sweeney/rockpi-quad/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": display.FormatUptime,
	"msOrOff": func(ms int64) string {
		if ms <= 0 {
			return "disabled"
		}
		return fmt.Sprintf("%dms", ms)
	},
	"join": strings.Join,
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>ROCK Pi Quad SATA HAT</title>
<style>
body { background: #111; color: #ddd; font: 14px/1.5 monospace; max-width: 40em; margin: 1.5em auto; padding: 0 1em; }
h1 { font-size: 1.2em; color: #6cf; }
h2 { font-size: 1em; margin-top: 1.5em; border-bottom: 1px solid #333; }
table { width: 100%; border-spacing: 0; }
th { text-align: left; font-weight: normal; color: #999; width: 45%; padding: 2px 0; }
td { padding: 2px 0; }
.on, .connected { color: #7d7; }
.off { color: #777; }
.disconnected { color: #e66; }
button { font: inherit; background: #222; color: #ddd; border: 1px solid #555; padding: 4px 10px; margin-right: 8px; }
a { color: #6cf; }
</style>
</head>
<body>
<h1>ROCK Pi Quad SATA HAT</h1>

<h2>Fan</h2>
<table>
<tr><th>State</th><td id="fan-state" class="{{if .Fan.Enabled}}on{{else}}off{{end}}">{{if .Fan.Enabled}}enabled{{else}}disabled{{end}}</td></tr>
<tr><th>Duty</th><td>{{if lt .Fan.Duty 0}}-{{else}}{{.Fan.Duty}}%{{end}}</td></tr>
<tr><th>Temperature</th><td>{{printf "%.1f" .Fan.Temperature}}&deg;C</td></tr>
<tr><th>Curve</th><td>{{if .Config.Curve.Linear}}linear{{else}}stepped{{end}} {{.Config.Curve.Lv0}}/{{.Config.Curve.Lv1}}/{{.Config.Curve.Lv2}}/{{.Config.Curve.Lv3}}</td></tr>
</table>

<h2>Display</h2>
<table>
<tr><th>Page</th><td>{{if lt .Page.Index 0}}-{{else}}{{.Page.Title}} ({{.Page.Index}}/{{.Page.Count}}){{end}}</td></tr>
<tr><th>Rotation</th><td>{{if .Config.AutoSlide}}auto, {{.Config.SlideMs}}ms{{else}}manual{{end}}</td></tr>
</table>
{{if .Controls}}
<p>
<button onclick="act('/api/fan/toggle')">Toggle fan</button>
<button onclick="act('/api/slider/next')">Next page</button>
</p>
<script>
function act(path) {
  fetch(path, { method: "POST" }).then(function() { location.reload(); });
}
</script>
{{end}}
<h2>Button</h2>
<table>
<tr><th>Click ({{.Config.Keys.Click}})</th><td>{{.Counts.Click}}</td></tr>
<tr><th>Twice ({{.Config.Keys.Twice}})</th><td>{{.Counts.Twice}}</td></tr>
<tr><th>Press ({{.Config.Keys.Press}})</th><td>{{.Counts.Press}}</td></tr>
{{if .LastGesture}}<tr><th>Last</th><td>{{.LastGesture}} at {{.LastGestureAt.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>{{end}}
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}none{{end}}</td></tr>
{{if .Network}}<tr><th>IP</th><td>{{.Network.IP}}</td></tr>
<tr><th>Interfaces</th><td>{{join .Network.Interfaces ", "}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02 15:04:05"}} UTC</td></tr>
<tr><th>Config</th><td>{{if .Config.ConfigPath}}{{.Config.ConfigPath}}{{else}}defaults{{end}}</td></tr>
<tr><th>Sample</th><td>{{.Config.SampleMs}}ms</td></tr>
<tr><th>Fan poll</th><td>{{.Config.FanPollMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{msOrOff .Config.HeartbeatMs}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p>Raw status: <a href="/index.json">index.json</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot, controls bool) {
	page := struct {
		status.Snapshot
		Uptime   time.Duration
		Controls bool
	}{snap, snap.Uptime(), controls}
	if err := indexTmpl.Execute(w, page); err != nil {
		slog.Warn("render status page failed", "error", err)
	}
}
