package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/walk-tracker/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		if days := d / (24 * time.Hour); days > 0 {
			return fmt.Sprintf("%dd %s", days, d-days*24*time.Hour)
		}
		return d.String()
	},
	"clock": func(seconds int) string {
		return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, seconds/60%60, seconds%60)
	},
	"km": func(meters float64) string {
		return fmt.Sprintf("%.2f", meters/1000)
	},
	"kcal": func(v float64) string {
		return fmt.Sprintf("%.0f", v)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
{{if .Tracking}}<meta http-equiv="refresh" content="5">{{end}}
<title>Walk Tracker</title>
<style>
body { font: 15px/1.4 system-ui, sans-serif; max-width: 640px; margin: 1.5em auto; padding: 0 1em; color: #222; }
header { display: flex; justify-content: space-between; align-items: baseline; }
.phase { padding: 2px 10px; border-radius: 10px; background: #eee; font-size: 0.85em; }
.phase.tracking { background: #2e7d32; color: #fff; }
.stats { display: grid; grid-template-columns: repeat(4, 1fr); gap: 8px; margin: 1em 0; }
.stat { border: 1px solid #ddd; border-radius: 6px; padding: 8px; text-align: center; }
.stat b { display: block; font-size: 1.6em; }
.stat span { color: #777; font-size: 0.8em; }
dl { display: grid; grid-template-columns: 11em 1fr; row-gap: 4px; }
dt { color: #666; }
dd { margin: 0; }
.ok { color: #2e7d32; }
.bad { color: #c62828; }
button { padding: 6px 14px; margin-right: 6px; }
footer { margin-top: 2em; font-size: 0.85em; }
</style>
</head>
<body>
<header>
<h1>Walk Tracker</h1>
<span id="phase" class="phase{{if .Tracking}} tracking{{end}}">{{.Walk.Phase}}</span>
</header>

<div class="stats">
<div class="stat"><b>{{km .Walk.DistanceMeters}}</b><span>km</span></div>
<div class="stat"><b>{{clock .Walk.DurationSeconds}}</b><span>elapsed</span></div>
<div class="stat"><b>{{kcal .Walk.EnergyKcal}}</b><span>kcal</span></div>
<div class="stat"><b>{{.Walk.PointCount}}</b><span>points</span></div>
</div>
{{if .LastError}}<p class="bad">{{.LastError}}</p>{{end}}
{{if .Controls}}
<p>
{{if .Tracking}}<button onclick="post('/walk/stop')">Stop walk</button>{{else}}<button onclick="post('/walk/start')">Start walk</button>{{end}}
<button onclick="post('/walk/export')">Export GPX</button>
</p>
{{end}}

<h2>Walker</h2>
<dl>
<dt>Weight</dt><dd>{{printf "%.1f" .WeightKg}} kg</dd>
<dt>Recorded walks</dt><dd><a href="/history.json">{{.HistoryCount}}</a></dd>
{{if .LastExport}}<dt>Last export</dt><dd>{{.LastExport}}</dd>{{end}}
</dl>

<h2>Daemon</h2>
<dl>
<dt>MQTT</dt><dd class="{{if .MQTTConnected}}ok{{else}}bad{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}} ({{.Config.Broker}})</dd>
<dt>Position source</dt><dd>{{.Config.PositionSource}}</dd>
<dt>Storage</dt><dd>{{.Config.Storage}}</dd>
<dt>Progress publish</dt><dd>{{if eq .Config.PublishIntervalMs 0}}off{{else}}every {{.Config.PublishIntervalMs}}ms{{end}}</dd>
<dt>Button</dt><dd>{{if eq .Config.ButtonPin 0}}none{{else}}GPIO {{.Config.ButtonPin}}{{end}}</dd>
<dt>Up</dt><dd>{{uptime .Uptime}} since {{.StartTime.UTC.Format "2006-01-02 15:04:05"}} UTC</dd>
</dl>

<footer><a href="/index.json">status.json</a> · <a href="/metrics">metrics</a></footer>
{{if .Controls}}
<script>
function post(path) {
  fetch(path, { method: "POST" })
    .then(function(r) { return r.json(); })
    .then(function(body) {
      var note = body.error || body.warning || (body.location && "Saved " + body.location);
      if (note) { alert(note); }
      location.reload();
    });
}
</script>
{{end}}
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot, controls bool) {
	data := struct {
		status.Snapshot
		Uptime   time.Duration
		Tracking bool
		Controls bool
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Tracking: snap.Walk.Tracking(),
		Controls: controls,
	}
	indexTmpl.Execute(w, data)
}
