package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"chatey/auth"
	"chatey/components/message"
	"chatey/jsonrpc2"
	"chatey/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Client represents the websocket client at the server
type Client struct {
	// The actual websocket connection.
	conn     *websocket.Conn
	wsServer *WsServer
	send     chan []byte
	id       uuid.UUID
	uid      string

	mu            sync.Mutex
	conversations map[string]bool
}

func newClient(conn *websocket.Conn, wsServer *WsServer, uid string) *Client {
	return &Client{
		conn:          conn,
		wsServer:      wsServer,
		send:          make(chan []byte, 256),
		id:            uuid.New(),
		uid:           uid,
		conversations: make(map[string]bool),
	}
}

// ServeWs handles websocket requests from clients requests.
func ServeWs(wsServer *WsServer, c *gin.Context) {
	claims, code := auth.ValidUser(c)
	if claims == nil {
		utils.Log().Info("Not authenticated")
		c.AbortWithStatus(code)
		return
	}

	current := wsServer.session.User()
	if current == nil || current.UID != claims.GetUID() {
		utils.Log().Info("token does not belong to the signed-in identity")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	var upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}

	if wsServer.devmode > 0 {
		upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return strings.HasPrefix(origin, "http://192.168.") || strings.HasPrefix(origin, "http://localhost")
		}
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.Log().Error(err, "error while upgrading to websocket")
		return
	}

	client := newClient(conn, wsServer, claims.GetUID())
	wsServer.register <- client

	go client.writeThread()
	go client.readThread()
	utils.Log().Info("ServeWs " + claims.GetUID())
}

func (me *Client) GetID() string {
	return me.id.String()
}

func (me *Client) readThread() {
	defer me.disconnect()

	me.conn.SetReadLimit(maxMessageSize)
	me.conn.SetReadDeadline(time.Now().Add(pongWait))
	me.conn.SetPongHandler(func(string) error {
		// keep connection alive
		me.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// Start endless read loop, waiting for messages from client
	for {
		_, jsonMessage, err := me.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				utils.Log().Error(err, "unexpected websocket close error")
				break
			}

			utils.Log().V(2).Info(fmt.Sprintf("client %s close connection", me.GetID()))
			break
		}

		me.handleNewMessage(jsonMessage)
	}
}

func (me *Client) writeThread() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		me.conn.Close()
	}()
	for {
		select {
		case message, ok := <-me.send:
			me.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The WsServer closed the channel.
				me.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := me.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Attach queued messages to the current websocket message.
			n := len(me.send)
			for i := 0; i < n; i++ {
				w.Write(newline)
				w.Write(<-me.send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			me.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := me.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// disconnect closes every conversation this client had open.
func (me *Client) disconnect() {
	utils.Log().Info("disconnect " + me.GetID())
	for _, id := range me.clearViews() {
		me.wsServer.views.release(id)
	}

	select {
	case me.wsServer.unregister <- me:
	case <-me.wsServer.done:
	}
	me.conn.Close()
}

func (me *Client) isViewing(conversationID string) bool {
	me.mu.Lock()
	defer me.mu.Unlock()
	return me.conversations[conversationID]
}

// clearViews forgets the open conversations and returns them.
func (me *Client) clearViews() []string {
	me.mu.Lock()
	defer me.mu.Unlock()

	ids := make([]string, 0, len(me.conversations))
	for id := range me.conversations {
		ids = append(ids, id)
	}
	me.conversations = make(map[string]bool)
	return ids
}

func (me *Client) handleNewMessage(jsonMessage []byte) {
	utils.Log().V(2).Info("handleNewMessage " + string(jsonMessage))
	var rpc jsonrpc2.RPCRequest
	if err := json.Unmarshal(jsonMessage, &rpc); err != nil {
		utils.Log().Error(err, "error on unmarshal JSON rpc")
		return
	}

	switch rpc.Method {
	case OpenConversationAction:
		me.handleOpenConversation(&rpc)

	case CloseConversationAction:
		me.handleCloseConversation(&rpc)

	case SendMessageAction:
		me.handleSendMessage(&rpc)

	default:
		me.replyError(&rpc, http.StatusMethodNotAllowed, errors.New("method not allowed"))
	}
}

// participant checks the signed-in identity still owns this connection and
// takes part in the conversation.
func (me *Client) participant(conversationID string) error {
	current := me.wsServer.session.User()
	if current == nil || current.UID != me.uid {
		return errors.New("session expired")
	}

	if !utils.StringInSlice(conversationID, current.Conversations) {
		return message.ErrNotParticipant
	}

	return nil
}

func (me *Client) handleOpenConversation(rpc *jsonrpc2.RPCRequest) {
	var params ConversationParams
	if err := rpc.BindParams(&params); err != nil {
		me.replyError(rpc, http.StatusBadRequest, err)
		return
	}

	if err := me.participant(params.ConversationID); err != nil {
		me.replyError(rpc, http.StatusForbidden, err)
		return
	}

	me.mu.Lock()
	already := me.conversations[params.ConversationID]
	me.conversations[params.ConversationID] = true
	me.mu.Unlock()

	if !already {
		if err := me.wsServer.views.acquire(params.ConversationID); err != nil {
			me.mu.Lock()
			delete(me.conversations, params.ConversationID)
			me.mu.Unlock()
			me.replyError(rpc, http.StatusInternalServerError, err)
			return
		}
	}

	me.reply(rpc, &message.Snapshot{
		ConversationID: params.ConversationID,
		Messages:       me.wsServer.sync.Messages(params.ConversationID),
	})
}

func (me *Client) handleCloseConversation(rpc *jsonrpc2.RPCRequest) {
	var params ConversationParams
	if err := rpc.BindParams(&params); err != nil {
		me.replyError(rpc, http.StatusBadRequest, err)
		return
	}

	me.mu.Lock()
	open := me.conversations[params.ConversationID]
	delete(me.conversations, params.ConversationID)
	me.mu.Unlock()

	if open {
		me.wsServer.views.release(params.ConversationID)
	}

	me.reply(rpc, &params)
}

func (me *Client) handleSendMessage(rpc *jsonrpc2.RPCRequest) {
	var params SendMessageParams
	if err := rpc.BindParams(&params); err != nil {
		me.replyError(rpc, http.StatusBadRequest, err)
		return
	}

	if err := me.participant(params.ConversationID); err != nil {
		me.replyError(rpc, http.StatusForbidden, err)
		return
	}

	msg, err := me.wsServer.sync.SendMessage(params.ConversationID, me.uid, params.Content)
	if err != nil {
		if ok, _ := utils.IsValidMessage(params.Content); !ok {
			me.replyError(rpc, http.StatusBadRequest, err)
			return
		}
		me.replyError(rpc, http.StatusInternalServerError, err)
		return
	}

	me.reply(rpc, msg)
}

func (me *Client) reply(rpc *jsonrpc2.RPCRequest, result interface{}) {
	res, err := jsonrpc2.Reply(rpc.ID, result)
	if err != nil {
		utils.Log().Error(err, "error while create jsonrpc2 reply")
		return
	}
	me.SendMsg(res.Encode())
}

func (me *Client) replyError(rpc *jsonrpc2.RPCRequest, code int, err error) {
	utils.Log().V(2).Info(fmt.Sprintf("ReplyWithError, %s", err))
	me.SendMsg(jsonrpc2.ReplyWithError(rpc.ID, jsonrpc2.NewError(code, err)).Encode())
}

func (me *Client) SendMsg(msg []byte) {
	select {
	case me.send <- msg:
	default:
		utils.Log().Error(nil, "send msg error, buffer full", "client", me.GetID())
	}
}
