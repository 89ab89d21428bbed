package live

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"gsm-dashboard/internal/gateway"
	"gsm-dashboard/internal/poll"
	"gsm-dashboard/internal/ws"
)

// Target names.
const (
	Device  = "device"
	Queue   = "queue"
	Console = "console"
	History = "history"
	CallLog = "call_log"
)

const consoleAutoKey = "console_auto_refresh"

// maxCallLog bounds the call-log view.
const maxCallLog = 100

// Cadences used when Options leaves an interval unset or non-positive.
const (
	DefaultDeviceInterval  = 5 * time.Second
	DefaultQueueInterval   = 3 * time.Second
	DefaultConsoleInterval = 3 * time.Second
)

// Gateway is the read side of the modem the live views poll.
type Gateway interface {
	DeviceStatus(ctx context.Context) (gateway.DeviceStatus, error)
	QueueStatus(ctx context.Context) (gateway.QueueSnapshot, error)
	CommandLog(ctx context.Context) (string, error)
	History(ctx context.Context) ([]gateway.HistoryEntry, error)
	CallLog(ctx context.Context) ([]gateway.CallLogEntry, error)
}

type Sink interface {
	BroadcastEvent(eventType string, data any)
}

type Journal interface {
	RecordSample(target string, value any, err error)
}

// SettingStore remembers the console auto-refresh switch across restarts.
type SettingStore interface {
	Setting(key string) (string, bool)
	SetSetting(key, value string)
}

type DeviceView struct {
	SignalLevel     int    `json:"signalLevel"`
	OperatorName    string `json:"operatorName"`
	BrokerConnected bool   `json:"brokerConnected"`
	Time            string `json:"time"`
	Degraded        bool   `json:"degraded"`
}

type QueueView struct {
	Queue    []gateway.QueueItem `json:"queue"`
	Degraded bool                `json:"degraded"`
	Error    string              `json:"error,omitempty"`
}

type ConsoleView struct {
	Text     string `json:"text"`
	Degraded bool   `json:"degraded"`
}

type HistoryView struct {
	Entries  []gateway.HistoryEntry `json:"entries"`
	Degraded bool                   `json:"degraded"`
	Error    string                 `json:"error,omitempty"`
}

type CallLogView struct {
	Calls    []gateway.CallLogEntry `json:"calls"`
	Degraded bool                   `json:"degraded"`
	Error    string                 `json:"error,omitempty"`
}

type Options struct {
	DeviceInterval  time.Duration
	QueueInterval   time.Duration
	ConsoleInterval time.Duration
	// FetchTimeout bounds every poll request. Zero leaves them unbounded.
	FetchTimeout time.Duration
	Journal      Journal
	Settings     SettingStore
	Logger       poll.Logger
	Now          func() time.Time
}

// Dashboard owns the live views of the modem: device and queue status on a
// timer, console output on a timer only while auto-refresh is on, and the
// history views on demand.
type Dashboard struct {
	sink     Sink
	journal  Journal
	settings SettingStore
	now      func() time.Time

	scheduler *poll.Scheduler
	device    *poll.Target[gateway.DeviceStatus]
	queue     *poll.Target[gateway.QueueSnapshot]
	console   *poll.Target[string]
	history   *poll.Target[[]gateway.HistoryEntry]
	callLog   *poll.Target[[]gateway.CallLogEntry]

	mu          sync.Mutex
	running     bool
	consoleAuto bool
}

// New builds the dashboard. Fetches run under ctx; cancelling it ends every
// timer.
func New(ctx context.Context, gw Gateway, sink Sink, opts Options) *Dashboard {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	opts.DeviceInterval = positive(opts.DeviceInterval, DefaultDeviceInterval)
	opts.QueueInterval = positive(opts.QueueInterval, DefaultQueueInterval)
	opts.ConsoleInterval = positive(opts.ConsoleInterval, DefaultConsoleInterval)
	d := &Dashboard{
		sink:      sink,
		journal:   opts.Journal,
		settings:  opts.Settings,
		now:       opts.Now,
		scheduler: poll.NewScheduler(),
	}
	if d.settings != nil {
		if value, ok := d.settings.Setting(consoleAutoKey); ok {
			d.consoleAuto, _ = strconv.ParseBool(value)
		}
	}

	d.device = poll.NewTarget(ctx, poll.Config[gateway.DeviceStatus]{
		Name:     Device,
		Interval: opts.DeviceInterval,
		Timeout:  opts.FetchTimeout,
		Fetch:    gw.DeviceStatus,
		Render:   d.renderDevice,
		Degrade:  d.degradeDevice,
		Logger:   opts.Logger,
	})
	d.queue = poll.NewTarget(ctx, poll.Config[gateway.QueueSnapshot]{
		Name:     Queue,
		Interval: opts.QueueInterval,
		Timeout:  opts.FetchTimeout,
		Fetch:    gw.QueueStatus,
		Render:   d.renderQueue,
		Degrade:  d.degradeQueue,
		Logger:   opts.Logger,
	})
	d.console = poll.NewTarget(ctx, poll.Config[string]{
		Name:     Console,
		Interval: opts.ConsoleInterval,
		Timeout:  opts.FetchTimeout,
		Fetch:    gw.CommandLog,
		Render:   d.renderConsole,
		Degrade:  d.degradeConsole,
		Logger:   opts.Logger,
	})
	d.history = poll.NewTarget(ctx, poll.Config[[]gateway.HistoryEntry]{
		Name:    History,
		Timeout: opts.FetchTimeout,
		Fetch:   gw.History,
		Render: func(entries []gateway.HistoryEntry) {
			d.publish(History, ws.EventHistory, HistoryView{Entries: entries})
		},
		Degrade: func(err error) {
			d.degrade(History, ws.EventHistory, HistoryView{Entries: []gateway.HistoryEntry{}, Degraded: true, Error: err.Error()}, err)
		},
		Logger: opts.Logger,
	})
	d.callLog = poll.NewTarget(ctx, poll.Config[[]gateway.CallLogEntry]{
		Name:    CallLog,
		Timeout: opts.FetchTimeout,
		Fetch: func(ctx context.Context) ([]gateway.CallLogEntry, error) {
			calls, err := gw.CallLog(ctx)
			if err != nil {
				return nil, err
			}
			return recentCalls(calls), nil
		},
		Render: func(calls []gateway.CallLogEntry) {
			d.publish(CallLog, ws.EventCallLog, CallLogView{Calls: calls})
		},
		Degrade: func(err error) {
			d.degrade(CallLog, ws.EventCallLog, CallLogView{Calls: []gateway.CallLogEntry{}, Degraded: true, Error: err.Error()}, err)
		},
		Logger: opts.Logger,
	})

	for _, p := range []poll.Poller{d.device, d.queue, d.console, d.history, d.callLog} {
		// Names are constants above, so Add cannot collide.
		_ = d.scheduler.Add(p)
	}
	return d
}

// StartAll starts the device and queue views, and the console when its
// auto-refresh switch is on. Calling it again is a no-op.
func (d *Dashboard) StartAll() {
	d.mu.Lock()
	d.running = true
	auto := d.consoleAuto
	d.mu.Unlock()

	d.scheduler.Start(Device, Queue)
	if auto {
		d.scheduler.Start(Console)
	}
}

func (d *Dashboard) StopAll() {
	d.mu.Lock()
	d.running = false
	d.mu.Unlock()
	d.scheduler.StopAll()
}

// Wait blocks until no fetch is in flight. Call it after StopAll.
func (d *Dashboard) Wait() {
	d.scheduler.Wait()
}

// SetConsoleAutoRefresh toggles the console timer. The choice is remembered
// and applied by the next StartAll if the dashboard is not running.
func (d *Dashboard) SetConsoleAutoRefresh(enabled bool) {
	d.mu.Lock()
	d.consoleAuto = enabled
	running := d.running
	d.mu.Unlock()

	if d.settings != nil {
		d.settings.SetSetting(consoleAutoKey, strconv.FormatBool(enabled))
	}
	switch {
	case enabled && running:
		d.console.Start()
	case !enabled:
		d.console.Stop()
	}
}

func (d *Dashboard) ConsoleAutoRefresh() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.consoleAuto
}

func (d *Dashboard) RefreshHistory(ctx context.Context) ([]gateway.HistoryEntry, error) {
	if err := d.history.Refresh(ctx); err != nil {
		return nil, err
	}
	entries, _ := d.history.Last()
	return entries, nil
}

func (d *Dashboard) RefreshCallLog(ctx context.Context) ([]gateway.CallLogEntry, error) {
	if err := d.callLog.Refresh(ctx); err != nil {
		return nil, err
	}
	calls, _ := d.callLog.Last()
	return calls, nil
}

func positive(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}

// recentCalls returns the last maxCallLog calls, newest first.
func recentCalls(calls []gateway.CallLogEntry) []gateway.CallLogEntry {
	if len(calls) > maxCallLog {
		calls = calls[len(calls)-maxCallLog:]
	}
	out := make([]gateway.CallLogEntry, len(calls))
	for i, call := range calls {
		out[len(calls)-1-i] = call
	}
	return out
}

// RefreshConsole reads the modem's latest command output once.
func (d *Dashboard) RefreshConsole(ctx context.Context) (string, error) {
	if err := d.console.Refresh(ctx); err != nil {
		return "", err
	}
	text, _ := d.console.Last()
	return text, nil
}

func (d *Dashboard) State(name string) (poll.Status, bool) {
	p, ok := d.scheduler.Get(name)
	if !ok {
		return poll.Status{}, false
	}
	return p.Status(), true
}

func (d *Dashboard) States() []poll.Status {
	return d.scheduler.Statuses()
}

func (d *Dashboard) clock() string {
	return d.now().Format("15:04:05")
}

func (d *Dashboard) renderDevice(s gateway.DeviceStatus) {
	d.publish(Device, ws.EventDeviceStatus, DeviceView{
		SignalLevel:     s.Signal,
		OperatorName:    s.Operator,
		BrokerConnected: s.MQTTConnected,
		Time:            d.clock(),
	})
}

func (d *Dashboard) degradeDevice(err error) {
	d.degrade(Device, ws.EventDeviceStatus, DeviceView{
		SignalLevel:  0,
		OperatorName: "—",
		Time:         d.clock(),
		Degraded:     true,
	}, err)
}

func (d *Dashboard) renderQueue(s gateway.QueueSnapshot) {
	d.publish(Queue, ws.EventQueueStatus, QueueView{Queue: s.Queue})
}

func (d *Dashboard) degradeQueue(err error) {
	d.degrade(Queue, ws.EventQueueStatus, QueueView{Queue: []gateway.QueueItem{}, Degraded: true, Error: err.Error()}, err)
}

func (d *Dashboard) renderConsole(text string) {
	d.publish(Console, ws.EventConsoleOutput, ConsoleView{Text: text})
}

func (d *Dashboard) degradeConsole(err error) {
	d.degrade(Console, ws.EventConsoleOutput, ConsoleView{
		Text:     fmt.Sprintf("error reading response: %v", err),
		Degraded: true,
	}, err)
}

func (d *Dashboard) publish(target, event string, view any) {
	d.sink.BroadcastEvent(event, view)
	if d.journal != nil {
		d.journal.RecordSample(target, view, nil)
	}
}

// degrade renders the placeholder but journals only the error.
func (d *Dashboard) degrade(target, event string, placeholder any, err error) {
	d.sink.BroadcastEvent(event, placeholder)
	if d.journal != nil {
		d.journal.RecordSample(target, nil, err)
	}
}
