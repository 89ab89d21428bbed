package gateway

// --- Directory ---

// Contact is the wire form of a directory record. The modem stores the
// directory as a bare JSON array of these.
type Contact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
	Group string `json:"group"`
}

// --- Live status ---

type DeviceStatus struct {
	Signal        int    `json:"signal"`
	Operator      string `json:"operator"`
	MQTTConnected bool   `json:"mqttConnected"`
}

type QueueState string

const (
	QueueIdle    QueueState = "idle"
	QueueSending QueueState = "sending"
	QueueSent    QueueState = "sent"
	QueueError   QueueState = "error"
)

type QueueItem struct {
	ID         int        `json:"id"`
	Recipients string     `json:"recipients"`
	Message    string     `json:"message"`
	State      QueueState `json:"state"`
}

type QueueSnapshot struct {
	Queue []QueueItem `json:"queue"`
}

// --- History ---

type HistoryEntry struct {
	Timestamp int64  `json:"timestamp"` // unix seconds
	Recipient string `json:"recipient"`
	Message   string `json:"message"`
}

type HistoryConfig struct {
	SMSHistoryMaxCount int `json:"smsHistoryMaxCount"`
}

type CallLogEntry struct {
	Datetime string `json:"datetime"`
	Number   string `json:"number"`
}

// --- Outbound messages ---

type SendRequest struct {
	Recipients []string `json:"recipients"`
	Message    string   `json:"message"`
	SendTime   string   `json:"sendTime,omitempty"`
}

type SendResult struct {
	Status string `json:"status"`
	ID     int    `json:"id"`
}

// --- Broker ---

type BrokerConfig struct {
	ClientID     string `json:"clientId"`
	Username     string `json:"username"`
	Password     string `json:"password"`
	Broker       string `json:"broker"`
	Port         int    `json:"port"`
	Keepalive    int    `json:"keepalive"`
	CleanSession bool   `json:"cleanSession"`
	StatusTopic  string `json:"statusTopic"`
	SMSTopic     string `json:"smsTopic"`
	CallerTopic  string `json:"callerTopic"`
	PubTopic     string `json:"pubTopic"`
}

// BrokerCredentials is the subset of BrokerConfig the connectivity test needs.
type BrokerCredentials struct {
	ClientID  string `json:"clientId"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	Broker    string `json:"broker"`
	Port      int    `json:"port"`
	Keepalive int    `json:"keepalive"`
}

type BrokerTestResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// --- Device settings ---

type Settings struct {
	NTPServer        string `json:"ntpServer"`
	NTPPort          int    `json:"ntpPort"`
	LocalPort        int    `json:"localPort"`
	RetryInterval    int    `json:"retryInterval"`
	TZString         string `json:"tzString"`
	BaudRate         int    `json:"baudRate"`
	ATCTZU           bool   `json:"atctzu"` // network time auto-update
	ATCTR            bool   `json:"atctr"`  // manual clock
	ATCLIP           bool   `json:"atclip"` // caller id
	SMSPromptTimeout int    `json:"smsPromptTimeout"`
	SMSTimeout       int    `json:"smsTimeout"`
	CmdInterval      int    `json:"cmdInterval"`
	MaxRingCount     int    `json:"maxRingCount"`
}

// WithDefaults fills zero numeric fields with the firmware defaults.
func (s Settings) WithDefaults() Settings {
	if s.NTPPort == 0 {
		s.NTPPort = 123
	}
	if s.LocalPort == 0 {
		s.LocalPort = 2390
	}
	if s.RetryInterval == 0 {
		s.RetryInterval = 10000
	}
	if s.BaudRate == 0 {
		s.BaudRate = 115200
	}
	if s.SMSPromptTimeout == 0 {
		s.SMSPromptTimeout = 10000
	}
	if s.SMSTimeout == 0 {
		s.SMSTimeout = 15000
	}
	if s.CmdInterval == 0 {
		s.CmdInterval = 200
	}
	if s.MaxRingCount == 0 {
		s.MaxRingCount = 1
	}
	return s
}
