package gateway

import (
	"encoding/json"
	"errors"
	"log"
	"time"

	"liap-tui/apps/server/internal/codec"
	"liap-tui/apps/server/internal/lobby"
	"liap-tui/apps/server/internal/room"
	"liap-tui/castellan"
)

// handleMessage routes one inbound frame. Connection verbs (ping,
// client_ready, ack) and lobby verbs never touch a room's action queue;
// everything else becomes an engine Action.
func (c *Connection) handleMessage(raw []byte) {
	in, err := codec.DecodeInbound(raw)
	if err != nil {
		c.sendError(castellan.ErrKindValidation, err.Error())
		return
	}

	switch in.Event {
	case "ping":
		c.handlePing()
	case "client_ready":
		c.handleClientReady(in)
	case "ack":
		c.handleAck(in)
	case "sync_request":
		c.handleSyncRequest(in)

	case "create_room":
		c.handleCreateRoom(in)
	case "join_room":
		c.handleJoinRoom(in)
	case "get_rooms", "request_room_list":
		c.handleRoomList()
	case "get_room_state":
		c.handleGetRoomState(in)
	case "leave_room", "leave_game":
		c.handleLeave()

	case "start_game":
		c.submitAction(castellan.Action{Kind: castellan.ActionStartGame}, in.RequestID)
	case "player_ready":
		c.submitAction(castellan.Action{Kind: castellan.ActionPlayerReady}, in.RequestID)
	case "add_bot":
		c.handleAddBot(in)
	case "remove_player":
		c.handleRemovePlayer(in)
	case "declare":
		c.handleDeclare(in)
	case "play", "play_pieces":
		c.handlePlay(in)
	case "accept_redeal", "request_redeal":
		c.submitAction(castellan.Action{Kind: castellan.ActionAcceptRedeal}, in.RequestID)
	case "decline_redeal":
		c.submitAction(castellan.Action{Kind: castellan.ActionDeclineRedeal}, in.RequestID)
	case "redeal_decision":
		c.handleRedealDecision(in)

	default:
		log.Printf("[Gateway] Unknown event %q from %s", in.Event, c.ID)
		c.sendError(castellan.ErrKindValidation, "unknown event: "+in.Event)
	}
}

func (c *Connection) handlePing() {
	frame, err := codec.Encode("pong", map[string]any{
		"server_time": float64(time.Now().UnixNano()) / 1e9,
	}, 0)
	if err != nil {
		return
	}
	c.enqueue(frame)
}

// handleClientReady claims a seat by display name. A client without a
// room just gets the ack; a named seat claim attaches this channel and
// triggers the journal resync.
func (c *Connection) handleClientReady(in *codec.Inbound) {
	var payload codec.ClientReadyPayload
	if len(in.Data) > 0 {
		if err := json.Unmarshal(in.Data, &payload); err != nil {
			c.sendError(castellan.ErrKindValidation, "bad client_ready payload")
			return
		}
	}

	if payload.RoomID == "" {
		c.reply("client_ready_ack", map[string]any{})
		return
	}

	a := c.room(payload.RoomID)
	if a == nil {
		c.reply("room_not_found", map[string]any{"room_id": payload.RoomID})
		return
	}

	snap := a.Snapshot()
	seat := castellan.InvalidSeat
	for i := 0; i < castellan.NumSeats; i++ {
		s := snap.Seats[i]
		if s.Occupied() && !s.Bot && s.Name == payload.PlayerName {
			seat = i
			break
		}
	}
	if seat == castellan.InvalidSeat {
		c.sendError(castellan.ErrKindNotFound, "no seat held by "+payload.PlayerName)
		return
	}

	c.attachSeat(payload.RoomID, seat, payload.PlayerName)
	if err := a.SubmitEvent(room.Event{Type: room.EventConnResume, Seat: seat, LastAck: c.LastAck}); err != nil {
		c.sendSubmitError(err)
		return
	}
	c.reply("client_ready_ack", map[string]any{
		"room_id":       payload.RoomID,
		"seat_position": seat,
		"player_id":     codec.PlayerID(payload.RoomID, seat),
	})
}

func (c *Connection) handleAck(in *codec.Inbound) {
	var payload codec.AckPayload
	if err := json.Unmarshal(in.Data, &payload); err != nil {
		return
	}
	if payload.Version > c.LastAck {
		c.LastAck = payload.Version
	}
}

func (c *Connection) handleSyncRequest(in *codec.Inbound) {
	var payload codec.SyncRequestPayload
	if err := json.Unmarshal(in.Data, &payload); err != nil {
		c.sendError(castellan.ErrKindValidation, "bad sync_request payload")
		return
	}
	if payload.RoomID != "" && payload.RoomID != c.RoomID {
		c.sendError(castellan.ErrKindNotFound, "not seated in room "+payload.RoomID)
		return
	}
	a := c.currentRoom()
	if a == nil {
		c.sendError(castellan.ErrKindNotFound, "not seated in any room")
		return
	}
	if err := a.SubmitEvent(room.Event{Type: room.EventSync, Seat: c.Seat, LastAck: payload.LastAckVersion}); err != nil {
		c.sendSubmitError(err)
	}
}

// --- lobby verbs ---

func (c *Connection) handleCreateRoom(in *codec.Inbound) {
	var payload codec.CreateRoomPayload
	if len(in.Data) > 0 {
		if err := json.Unmarshal(in.Data, &payload); err != nil {
			c.sendError(castellan.ErrKindValidation, "bad create_room payload")
			return
		}
	}
	if payload.PlayerName == "" {
		c.sendError(castellan.ErrKindValidation, "player_name is required")
		return
	}
	lby := c.Gateway.lobbyRef()
	if lby == nil {
		c.sendError(castellan.ErrKindInternal, "lobby unavailable")
		return
	}

	a, err := lby.CreateRoom()
	if err != nil {
		c.sendError(castellan.ErrKindInternal, err.Error())
		return
	}

	// Join first, then attach; the join snapshot buffers in the seat
	// pipe and flushes on attach.
	if err := a.SubmitEvent(room.Event{
		Type:     room.EventJoin,
		Seat:     0,
		PlayerID: codec.PlayerID(a.ID, 0),
		Name:     payload.PlayerName,
	}); err != nil {
		lby.RemoveRoom(a.ID)
		c.sendSubmitError(err)
		return
	}
	c.attachSeat(a.ID, 0, payload.PlayerName)

	c.reply("room_created", map[string]any{
		"room_id":       a.ID,
		"host_name":     payload.PlayerName,
		"seat_position": 0,
		"player_id":     codec.PlayerID(a.ID, 0),
	})
}

func (c *Connection) handleJoinRoom(in *codec.Inbound) {
	var payload codec.JoinRoomPayload
	if err := json.Unmarshal(in.Data, &payload); err != nil {
		c.sendError(castellan.ErrKindValidation, "bad join_room payload")
		return
	}
	if payload.PlayerName == "" {
		c.sendError(castellan.ErrKindValidation, "player_name is required")
		return
	}
	a := c.room(payload.RoomID)
	if a == nil {
		c.reply("room_not_found", map[string]any{"room_id": payload.RoomID})
		return
	}

	seat := castellan.InvalidSeat
	if payload.SlotID != nil || payload.SeatPosition != nil {
		var err error
		seat, err = payload.Seat()
		if err != nil {
			c.sendError(castellan.ErrKindValidation, err.Error())
			return
		}
	} else {
		seat = a.FirstOpenSeat()
		if seat == castellan.InvalidSeat {
			c.sendError(castellan.ErrKindConflict, "room is full")
			return
		}
	}

	// Claim the seat through the engine before touching the pipe: a
	// rejected join must never displace whoever already holds the seat.
	// The join broadcasts buffer in the pipe and flush on attach.
	if err := a.SubmitEvent(room.Event{
		Type:     room.EventJoin,
		Seat:     seat,
		PlayerID: codec.PlayerID(payload.RoomID, seat),
		Name:     payload.PlayerName,
	}); err != nil {
		c.sendSubmitError(err)
		return
	}
	c.attachSeat(payload.RoomID, seat, payload.PlayerName)

	c.reply("room_joined", map[string]any{
		"room_id":       payload.RoomID,
		"seat_position": seat,
		"player_id":     codec.PlayerID(payload.RoomID, seat),
	})
}

func (c *Connection) handleRoomList() {
	lby := c.Gateway.lobbyRef()
	if lby == nil {
		return
	}
	c.reply("room_list_update", map[string]any{"rooms": lby.ListRooms()})
}

func (c *Connection) handleGetRoomState(in *codec.Inbound) {
	var payload codec.RoomIDPayload
	if len(in.Data) > 0 {
		_ = json.Unmarshal(in.Data, &payload)
	}
	if payload.RoomID != "" && payload.RoomID != c.RoomID {
		c.sendError(castellan.ErrKindNotFound, "not seated in room "+payload.RoomID)
		return
	}
	a := c.currentRoom()
	if a == nil {
		c.sendError(castellan.ErrKindNotFound, "not seated in any room")
		return
	}
	if err := a.SubmitEvent(room.Event{Type: room.EventGetState, Seat: c.Seat}); err != nil {
		c.sendSubmitError(err)
	}
}

// handleLeave frees the seat pre-game; mid-game it behaves like a
// disconnect so the grace timer hands the seat to a bot.
func (c *Connection) handleLeave() {
	a := c.currentRoom()
	if a == nil {
		return
	}
	seat := c.Seat

	if a.Snapshot().Phase == castellan.PhaseWaiting {
		_ = a.SubmitEvent(room.Event{
			Type:   room.EventAction,
			Action: castellan.Action{Seat: seat, Kind: castellan.ActionLeaveGame},
		})
	} else {
		_ = a.SubmitEvent(room.Event{Type: room.EventConnLost, Seat: seat})
	}
	c.detachSeat()
}

// --- in-room actions ---

func (c *Connection) handleAddBot(in *codec.Inbound) {
	var payload codec.AddBotPayload
	if len(in.Data) > 0 {
		if err := json.Unmarshal(in.Data, &payload); err != nil {
			c.sendError(castellan.ErrKindValidation, "bad add_bot payload")
			return
		}
	}
	a := c.currentRoom()
	if a == nil {
		c.sendError(castellan.ErrKindNotFound, "not seated in any room")
		return
	}

	target := castellan.InvalidSeat
	if payload.SlotID != nil || payload.SeatPosition != nil {
		var err error
		target, err = payload.Seat()
		if err != nil {
			c.sendError(castellan.ErrKindValidation, err.Error())
			return
		}
	} else {
		target = a.FirstOpenSeat()
		if target == castellan.InvalidSeat {
			c.sendError(castellan.ErrKindConflict, "room is full")
			return
		}
	}

	c.submitAction(castellan.Action{
		Kind:       castellan.ActionAddBot,
		TargetSeat: target,
		Name:       payload.Name,
	}, in.RequestID)
}

func (c *Connection) handleRemovePlayer(in *codec.Inbound) {
	var payload codec.RemovePlayerPayload
	if err := json.Unmarshal(in.Data, &payload); err != nil {
		c.sendError(castellan.ErrKindValidation, "bad remove_player payload")
		return
	}
	target, err := payload.Seat()
	if err != nil {
		c.sendError(castellan.ErrKindValidation, err.Error())
		return
	}
	c.submitAction(castellan.Action{
		Kind:       castellan.ActionRemovePlayer,
		TargetSeat: target,
	}, in.RequestID)
}

func (c *Connection) handleDeclare(in *codec.Inbound) {
	var payload codec.DeclarePayload
	if err := json.Unmarshal(in.Data, &payload); err != nil {
		c.sendError(castellan.ErrKindValidation, "bad declare payload")
		return
	}
	c.submitAction(castellan.Action{
		Kind:  castellan.ActionDeclare,
		Value: payload.Value,
	}, in.RequestID)
}

func (c *Connection) handlePlay(in *codec.Inbound) {
	var payload codec.PlayPayload
	if err := json.Unmarshal(in.Data, &payload); err != nil {
		c.sendError(castellan.ErrKindValidation, "bad play payload")
		return
	}
	pieces, err := codec.ParsePieces(payload.Pieces)
	if err != nil {
		c.sendError(castellan.ErrKindIllegalPieces, err.Error())
		return
	}
	c.submitAction(castellan.Action{
		Kind:   castellan.ActionPlay,
		Pieces: pieces,
	}, in.RequestID)
}

func (c *Connection) handleRedealDecision(in *codec.Inbound) {
	var payload codec.RedealDecisionPayload
	if err := json.Unmarshal(in.Data, &payload); err != nil {
		c.sendError(castellan.ErrKindValidation, "bad redeal_decision payload")
		return
	}
	kind := castellan.ActionDeclineRedeal
	if payload.Accept {
		kind = castellan.ActionAcceptRedeal
	}
	c.submitAction(castellan.Action{Kind: kind}, in.RequestID)
}

// submitAction enqueues one engine action for this connection's seat.
// Rule rejections come back to the client as error frames from the room
// actor itself; only transport-level failures are reported here.
func (c *Connection) submitAction(action castellan.Action, requestID string) {
	a := c.currentRoom()
	if a == nil {
		c.sendError(castellan.ErrKindNotFound, "not seated in any room")
		return
	}
	action.Seat = c.Seat

	err := a.SubmitEvent(room.Event{
		Type:      room.EventAction,
		Seat:      c.Seat,
		Action:    action,
		RequestID: requestID,
	})
	switch {
	case err == nil:
	case errors.Is(err, room.ErrQueueFull), errors.Is(err, room.ErrRoomClosed):
		c.sendSubmitError(err)
	default:
		// The actor already delivered the rule error frame.
	}
}

// --- helpers ---

func (g *Gateway) lobbyRef() *lobby.Lobby {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.lobby
}

func (c *Connection) room(roomID string) *room.Actor {
	lby := c.Gateway.lobbyRef()
	if lby == nil {
		return nil
	}
	return lby.GetRoom(roomID)
}

func (c *Connection) currentRoom() *room.Actor {
	if c.RoomID == "" || c.Seat == castellan.InvalidSeat {
		return nil
	}
	return c.room(c.RoomID)
}

func (c *Connection) attachSeat(roomID string, seat int, name string) {
	if c.RoomID != "" && (c.RoomID != roomID || c.Seat != seat) {
		c.detachSeat()
	}
	c.RoomID = roomID
	c.Seat = seat
	c.PlayerName = name
	c.Gateway.pipe(pipeKey{roomID: roomID, seat: seat}).attach(c)
}

func (c *Connection) detachSeat() {
	if c.RoomID == "" || c.Seat == castellan.InvalidSeat {
		return
	}
	c.Gateway.pipe(pipeKey{roomID: c.RoomID, seat: c.Seat}).detach(c)
	c.RoomID = ""
	c.Seat = castellan.InvalidSeat
	c.PlayerName = ""
	c.LastAck = 0
}

func (c *Connection) reply(event string, body map[string]any) {
	frame, err := codec.Encode(event, body, 0)
	if err != nil {
		log.Printf("[Gateway] Failed to encode %s reply: %v", event, err)
		return
	}
	c.enqueue(frame)
}

func (c *Connection) sendError(kind castellan.ErrorKind, msg string) {
	c.enqueue(codec.EncodeError(string(kind), msg, nil))
}

func (c *Connection) sendSubmitError(err error) {
	switch {
	case errors.Is(err, room.ErrQueueFull):
		c.enqueue(codec.EncodeError(string(castellan.ErrKindOverload), "action queue full, retry shortly", nil))
	case errors.Is(err, room.ErrRoomClosed):
		c.enqueue(codec.EncodeError(string(castellan.ErrKindNotFound), "room closed", nil))
	default:
		c.enqueue(codec.EncodeError(string(castellan.KindOf(err)), err.Error(), nil))
	}
}
