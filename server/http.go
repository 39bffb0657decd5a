// server/http.go
// Copyright(c) 2024-2026 aloft contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package server exposes a running simulation over HTTP: a human stats
// page, a JSON state snapshot, Prometheus metrics, pprof, and
// downloads of the flight track and snapshot slots.
package server

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"runtime"
	"strconv"
	"text/template"
	"time"

	"github.com/aloft-sim/aloft/log"
	"github.com/aloft-sim/aloft/math"
	"github.com/aloft-sim/aloft/metrics"
	"github.com/aloft-sim/aloft/sim"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
)

// DefaultHTTPPort is the first port tried when launching the server.
const DefaultHTTPPort = 6580

type Server struct {
	sim       *sim.Sim
	metrics   *metrics.Metrics
	lg        *log.Logger
	startTime time.Time
	httpPort  int
}

// Launch starts the HTTP server on the first free port in
// [port, port+10) and returns immediately; the sim keeps running even
// if no port is available.
func Launch(s *sim.Sim, m *metrics.Metrics, port int, lg *log.Logger) *Server {
	srv := &Server{
		sim:       s,
		metrics:   m,
		lg:        lg,
		startTime: time.Now(),
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/sup", func(w http.ResponseWriter, r *http.Request) {
		srv.statsHandler(w, r)
		srv.lg.Infof("%s: served stats request", r.URL.String())
	})
	mux.HandleFunc("/state", srv.stateHandler)
	mux.HandleFunc("/track", srv.trackHandler)
	mux.HandleFunc("/snapshots", srv.snapshotsHandler)
	mux.Handle("/metrics", m.Handler())

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	if port <= 0 {
		port = DefaultHTTPPort
	}
	var listener net.Listener
	var err error
	for i := range 10 {
		p := port + i
		if listener, err = net.Listen("tcp", ":"+strconv.Itoa(p)); err == nil {
			srv.httpPort = p
			fmt.Printf("Launching HTTP server on port %d\n", p)
			break
		}
	}

	if err != nil {
		srv.lg.Warnf("Unable to start HTTP server: %v", err)
	} else {
		go func() {
			if err := http.Serve(listener, mux); err != nil {
				srv.lg.Errorf("HTTP server error: %v", err)
			}
		}()
	}
	return srv
}

// Port returns the port the server is listening on, or 0 if launch
// failed.
func (srv *Server) Port() int {
	return srv.httpPort
}

func (srv *Server) stateHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	if err := enc.Encode(srv.sim.Status()); err != nil {
		srv.lg.Errorf("%s: %v", r.URL.String(), err)
	}
}

func (srv *Server) trackHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="aloft-track.bin"`)
	if err := srv.sim.ExportTrack(w); err != nil {
		srv.lg.Errorf("%s: %v", r.URL.String(), err)
	}
}

func (srv *Server) snapshotsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="aloft-snapshots.bin"`)
	if err := srv.sim.ExportSnapshots(w); err != nil {
		srv.lg.Errorf("%s: %v", r.URL.String(), err)
	}
}

///////////////////////////////////////////////////////////////////////////
// Status / statistics via HTTP...

type serverStats struct {
	Hostname string
	Platform string
	Uptime   time.Duration

	AllocMemory      uint64
	TotalAllocMemory uint64
	SysMemory        uint64
	NumGC            uint32
	NumGoRoutines    int
	CPUUsage         int

	Sim sim.Status
}

var statsTemplate = template.Must(template.New("").Parse(`
<!DOCTYPE html>
<html>
<head>
<title>aloft</title>
</head>
<style>
table {
  border-collapse: collapse;
  width: 100%;
}

th, td {
  border: 1px solid #dddddd;
  padding: 8px;
  text-align: left;
}

tr:nth-child(even) {
  background-color: #f2f2f2;
}
</style>
<body>
<h1>Host Status</h1>
<ul>
  <li>Host: {{.Hostname}} ({{.Platform}})</li>
  <li>Uptime: {{.Uptime}}</li>
  <li>CPU usage: {{.CPUUsage}}%</li>
  <li>Allocated memory: {{.AllocMemory}} MB</li>
  <li>Total allocated memory: {{.TotalAllocMemory}} MB</li>
  <li>System memory: {{.SysMemory}} MB</li>
  <li>Garbage collection passes: {{.NumGC}}</li>
  <li>Running goroutines: {{.NumGoRoutines}}</li>
</ul>

<h1>Flight Status</h1>
<table>
  <tr>
  <th>Scenario</th>
  <th>Profile</th>
  <th>Altitude</th>
  <th>Heading</th>
  <th>Speed</th>
  <th>Climb</th>
  <th>Camera</th>
  <th>Autopilot</th>
  <th>Sim Time</th>
  <th>Ticks</th>
  </tr>
  <tr>
  <td>{{.Sim.Scenario}}{{if .Sim.Paused}} (paused){{end}}</td>
  <td>{{.Sim.Profile}}</td>
  <td>{{printf "%.0f m" .Sim.State.Altitude}}</td>
  <td>{{printf "%03.0f" .Sim.CompassDeg}}</td>
  <td>{{printf "%.0f m/s" .Sim.State.Speed}}</td>
  <td>{{printf "%.1f m/s" .Sim.VerticalSpeedTrend}}</td>
  <td>{{.Sim.CameraMode}}</td>
  <td>{{if index .Sim.Autopilot "enabled"}}engaged{{else}}off{{end}}</td>
  <td>{{printf "%.0f s" .Sim.SimTime}}</td>
  <td>{{.Sim.Ticks}}</td>
  </tr>
</table>

<h1>Terrain</h1>
<ul>
  <li>Height under aircraft: {{printf "%.1f m" .Sim.TerrainHeight}}</li>
  <li>Queries: {{.Sim.TerrainQueries}} ({{.Sim.TerrainFailures}} failed)</li>
  <li>Stage panics: {{.Sim.StagePanics}}</li>
</ul>

</body>
</html>
`))

func (srv *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	usage, _ := cpu.Percent(time.Second, false)
	cpuUsage := 0
	if len(usage) > 0 {
		cpuUsage = int(math.Round(float32(usage[0])))
	}

	stats := serverStats{
		Uptime:           time.Since(srv.startTime).Round(time.Second),
		AllocMemory:      m.Alloc / (1024 * 1024),
		TotalAllocMemory: m.TotalAlloc / (1024 * 1024),
		SysMemory:        m.Sys / (1024 * 1024),
		NumGC:            m.NumGC,
		NumGoRoutines:    runtime.NumGoroutine(),
		CPUUsage:         cpuUsage,

		Sim: srv.sim.Status(),
	}
	if info, err := host.Info(); err == nil {
		stats.Hostname = info.Hostname
		stats.Platform = fmt.Sprintf("%s %s", info.Platform, info.PlatformVersion)
	}

	statsTemplate.Execute(w, stats)
}
