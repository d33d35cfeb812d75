package main

import "encoding/json"

// Client -> Server message types
const (
	MsgJoin     = "join" // watch a session
	MsgLeave    = "leave"
	MsgInput    = "input"
	MsgCreate   = "create" // create session
	MsgList     = "list"   // list sessions
	MsgCheck    = "check"  // check if session exists
	MsgControl  = "control"
	MsgForce    = "force"   // force the next attack
	MsgAttacks  = "attacks" // start/stop the scheduler
	MsgRegister = "register"
	MsgLogin    = "login"
	MsgAuth     = "auth"
	MsgProfile  = "profile"
)

// Server -> Client message types
const (
	MsgState       = "state" // binary msgpack
	MsgCrash       = "crash"
	MsgTheme       = "theme"
	MsgSessions    = "sessions"
	MsgJoined      = "joined"
	MsgCreated     = "created"
	MsgError       = "error"
	MsgChecked     = "checked"
	MsgControlOK   = "control_ok"
	MsgCtrlOn      = "ctrl_on"  // controller attached
	MsgCtrlOff     = "ctrl_off" // controller detached
	MsgAuthOK      = "auth_ok"
	MsgProfileData = "profile_data"
)

// Envelope wraps all outgoing messages with a type field
type Envelope struct {
	T    string      `json:"t"`
	Data interface{} `json:"d,omitempty"`
}

// InEnvelope is used for incoming messages. json.RawMessage avoids a double unmarshal.
type InEnvelope struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d,omitempty"`
}

// ClientInput is the steering state, sent on change
type ClientInput struct {
	Left  bool `json:"left"`
	Right bool `json:"right"`
}

// JoinMsg asks to watch a session
type JoinMsg struct {
	SessionID string `json:"sid"`
}

// CreateMsg asks for a new session
type CreateMsg struct {
	SessionName string `json:"sname"`
	Theme       string `json:"theme,omitempty"`
}

// ControlMsg attaches the sender as the session's input controller
type ControlMsg struct {
	SID string `json:"sid"`
}

// ForceMsg names the attack to force
type ForceMsg struct {
	Attack string `json:"attack"`
}

// AttacksMsg turns the scheduler on or off
type AttacksMsg struct {
	On bool `json:"on"`
}

// CheckMsg is sent by client to check if a session exists
type CheckMsg struct {
	SID string `json:"sid"`
}

// CheckedMsg is the response to a session check
type CheckedMsg struct {
	SID     string `json:"sid"`
	Exists  bool   `json:"exists"`
	Name    string `json:"name,omitempty"`
	Viewers int    `json:"viewers,omitempty"`
	Theme   string `json:"theme,omitempty"`
}

// RegisterMsg creates an account
type RegisterMsg struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginMsg authenticates with a password
type LoginMsg struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthMsg re-authenticates with a token
type AuthMsg struct {
	Token string `json:"token"`
}

// AuthOKMsg confirms authentication
type AuthOKMsg struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	PilotID  int64  `json:"pid"`
}

// ProfileDataMsg carries a pilot's lifetime stats
type ProfileDataMsg struct {
	Username     string   `json:"username"`
	BestDistance float64  `json:"best"`
	Runs         int      `json:"runs"`
	Crashes      int      `json:"crashes"`
	Playtime     float64  `json:"playtime"`
	Achievements []string `json:"achievements"`
}

// CrashMsg is broadcast when the vehicle crashes
type CrashMsg struct {
	Source     string  `json:"src"`
	Kind       string  `json:"kind,omitempty"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Distance   float64 `json:"dist"`
	Difficulty int     `json:"diff"`
}

// ThemeMsg is broadcast after a theme switch
type ThemeMsg struct {
	Name         string  `json:"name"`
	SurvivalTime float64 `json:"survival"`
	Attacks      bool    `json:"attacks"`
}

// SessionInfo is used in the session list
type SessionInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Viewers int    `json:"viewers"`
	Theme   string `json:"theme"`
}

// ErrorMsg sends error to client
type ErrorMsg struct {
	Msg string `json:"msg"`
}

// ChunkState is one track chunk in a state frame
type ChunkState struct {
	X float64 `msgpack:"x"`
	Z float64 `msgpack:"z"`
	T int     `msgpack:"t"`
}

// HazardState is one hazard and its world transform (column-major)
type HazardState struct {
	ID    uint64      `msgpack:"id"`
	Kind  uint8       `msgpack:"k"`
	Phase uint8       `msgpack:"p"`
	M     [16]float64 `msgpack:"m"`
}

// VehicleState is the vehicle's motion
type VehicleState struct {
	Velocity float64 `msgpack:"v"`
	Roll     float64 `msgpack:"r"`
	Speed    float64 `msgpack:"s"`
}

// SimState is the full binary state frame
type SimState struct {
	Tick       uint64        `msgpack:"tick"`
	Chunks     []ChunkState  `msgpack:"c"`
	Hazards    []HazardState `msgpack:"h"`
	Vehicle    VehicleState  `msgpack:"v"`
	Distance   float64       `msgpack:"d"`
	HighScore  int           `msgpack:"hs"`
	Difficulty int           `msgpack:"df"`
	Rows       int           `msgpack:"rows"`
	FloorX     float64       `msgpack:"fx"`
	Theme      string        `msgpack:"th"`
	Phase      int           `msgpack:"ph"`
	Remaining  float64       `msgpack:"rem"`
	Resetting  bool          `msgpack:"rst"`
}
