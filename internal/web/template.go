package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/dcf77-clock/internal/dcf77"
	"github.com/sweeney/dcf77-clock/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>DCF77 Clock</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.clock { font-size: 2.4em; text-align: center; margin: 0.5em 0; }
.date { font-size: 1.4em; text-align: center; color: #444; }
.valid { color: green; }
.invalid { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>DCF77 Clock{{if .Live}}<span id="live-dot" class="live-dot pending" title="connecting"></span>{{end}}</h1>

{{with .CurrentView}}
<div class="clock" id="clock">{{.Time}}</div>
<div class="date"><span id="weekday">{{.Weekday}}</span> <span id="date">{{.Date}}</span> <span id="zone">{{.Zone}}</span></div>
{{else}}
<div class="clock" id="clock">--:--</div>
<div class="date"><span id="weekday">---</span> <span id="date">--.--.--</span> <span id="zone">----</span></div>
{{end}}

<h2>Receiver</h2>
<table>
<tr><th>Synced</th><td id="synced">{{if .Synced}}yes{{else}}no{{end}}</td></tr>
<tr><th>Second</th><td id="second">{{.Second}}</td></tr>
{{with .CurrentView}}<tr><th>Last frame</th><td id="frame" class="{{if .Valid}}valid{{else}}invalid{{end}}">{{.FrameLen}} bits, {{if .Valid}}valid{{else}}{{range $field, $fault := .Faults}}{{$field}}={{$fault}} {{end}}{{end}}</td></tr>{{end}}
{{with .LastValidView}}<tr><th>Last valid</th><td id="last-valid">{{.Weekday}} {{.Date}} {{.Time}} {{.Zone}}</td></tr>{{end}}
</table>

<h2>Counts</h2>
<table>
<tr><th>Seconds</th><td>{{.Counts.Cycles}}</td></tr>
<tr><th>Frames</th><td>{{.Counts.Frames}}</td></tr>
<tr><th>Valid frames</th><td>{{.Counts.ValidFrames}}</td></tr>
<tr><th>Dropped</th><td>{{.Counts.Dropped}}</td></tr>
{{range .Faults}}<tr><th>{{.Name}}</th><td>{{.Count}}</td></tr>
{{end}}</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Pin</th><td>GPIO{{.Config.Pin}}{{if .Config.Invert}} (inverted){{end}}</td></tr>
<tr><th>Poll</th><td>{{if eq .Config.PollMs 0}}spin{{else}}{{.Config.PollMs}}ms{{end}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPPort}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> <a href="/metrics">metrics</a></p>
{{if .Live}}
<script>
(function() {
  var dot = document.getElementById("live-dot");
  function byId(id) { return document.getElementById(id); }
  function set(id, text) { var el = byId(id); if (el) el.textContent = text; }
  function setDot(cls, title) { dot.className = "live-dot " + cls; dot.title = title; }

  function connect() {
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    var ws = new WebSocket(proto + location.host + "/ws");
    ws.onopen = function() { setDot("ok", "live"); };
    ws.onclose = function() { setDot("err", "offline"); setTimeout(connect, 5000); };
    ws.onerror = function() { setDot("err", "error"); };
    ws.onmessage = function(ev) {
      try {
        var s = JSON.parse(ev.data).status;
        set("synced", s.synced ? "yes" : "no");
        set("second", s.second);
        if (s.current) {
          set("clock", s.current.time);
          set("weekday", s.current.weekday);
          set("date", s.current.date);
          set("zone", s.current.zone);
        }
        if (s.last_valid) {
          var lv = s.last_valid;
          set("last-valid", lv.weekday + " " + lv.date + " " + lv.time + " " + lv.zone);
        }
      } catch (e) {}
    };
  }
  connect();
})();
</script>
{{end}}
</body>
</html>
`

type faultCount struct {
	Name  string
	Count int
}

func renderHTML(w io.Writer, snap status.Snapshot, live bool) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime        time.Duration
		Live          bool
		CurrentView   *status.MinuteJSON
		LastValidView *status.MinuteJSON
		Faults        []faultCount
	}{
		Snapshot:      snap,
		Uptime:        snap.Uptime(),
		Live:          live,
		CurrentView:   status.NewMinuteJSON(snap.Current),
		LastValidView: status.NewMinuteJSON(snap.LastValid),
	}
	for _, name := range status.FaultNames(snap.Counts) {
		data.Faults = append(data.Faults, faultCount{Name: name, Count: snap.Counts.Faults[dcf77.Fault(name)]})
	}
	indexTmpl.Execute(w, data)
}
