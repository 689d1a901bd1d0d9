package castellan

// Phase 游戏阶段
type Phase byte

const (
	PhaseWaiting Phase = iota
	PhasePreparation
	PhaseDeclaration
	PhaseTurn
	PhaseTurnResults
	PhaseScoring
	PhaseGameOver
)

var PhaseDictionary = map[Phase]string{
	PhaseWaiting:     "waiting",
	PhasePreparation: "preparation",
	PhaseDeclaration: "declaration",
	PhaseTurn:        "turn",
	PhaseTurnResults: "turn_results",
	PhaseScoring:     "scoring",
	PhaseGameOver:    "game_over",
}

func (p Phase) String() string {
	if s, ok := PhaseDictionary[p]; ok {
		return s
	}
	return "?"
}

// ActionKind 动作类型
type ActionKind byte

const (
	ActionNone ActionKind = iota
	ActionAddBot
	ActionRemovePlayer
	ActionStartGame
	ActionAcceptRedeal
	ActionDeclineRedeal
	ActionDeclare
	ActionPlay
	ActionPlayerReady
	ActionLeaveGame
)

var ActionKindDictionary = map[ActionKind]string{
	ActionNone:          "none",
	ActionAddBot:        "add_bot",
	ActionRemovePlayer:  "remove_player",
	ActionStartGame:     "start_game",
	ActionAcceptRedeal:  "accept_redeal",
	ActionDeclineRedeal: "decline_redeal",
	ActionDeclare:       "declare",
	ActionPlay:          "play",
	ActionPlayerReady:   "player_ready",
	ActionLeaveGame:     "leave_game",
}

func (k ActionKind) String() string {
	if s, ok := ActionKindDictionary[k]; ok {
		return s
	}
	return "?"
}

// ConnState 座位连接状态
type ConnState byte

const (
	SeatConnected ConnState = iota
	SeatDisconnected
	SeatBotTakeover
)

var ConnStateDictionary = map[ConnState]string{
	SeatConnected:    "CONNECTED",
	SeatDisconnected: "DISCONNECTED",
	SeatBotTakeover:  "BOT_TAKEOVER",
}

func (s ConnState) String() string {
	if v, ok := ConnStateDictionary[s]; ok {
		return v
	}
	return "?"
}

const (
	// NumSeats 固定四座
	NumSeats = 4
	// PilesPerRound 每轮 8 墩
	PilesPerRound = 8
	// InvalidSeat marks "no seat" in snapshots and phase data.
	InvalidSeat = -1
	// MaxLeadCount 首家最多出 6 张
	MaxLeadCount = 6
)
