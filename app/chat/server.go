package chat

import (
	"context"
	"fmt"

	"chatey/components/message"
	"chatey/components/notification"
	"chatey/components/session"
	"chatey/components/user"
	"chatey/jsonrpc2"
	"chatey/utils"

	"github.com/gin-gonic/gin"
)

type WsServer struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan *outbound
	done       chan struct{}

	sync    *message.MessageSync
	session *session.Store
	notices *notification.Hub
	views   *views
	devmode int
}

// NewWebsocketServer creates a new WsServer type
func NewWebsocketServer(sync *message.MessageSync, store *session.Store, notices *notification.Hub, devmode int) *WsServer {
	return &WsServer{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *outbound),
		done:       make(chan struct{}),
		sync:       sync,
		session:    store,
		notices:    notices,
		views:      newViews(sync),
		devmode:    devmode,
	}
}

// Viewing reports whether a connected client has the conversation open.
func (server *WsServer) Viewing(conversationID string) bool {
	return server.views.count(conversationID) > 0
}

func (server *WsServer) InitRouteTo(rg *gin.Engine) {
	rg.GET("/ws", func(c *gin.Context) {
		ServeWs(server, c)
	})
}

// Run pushes snapshots, notices and identity changes to the connected
// clients until ctx is done.
func (server *WsServer) Run(ctx context.Context) {
	stops := []func(){
		server.sync.Listen(server.onSnapshot),
		server.notices.Subscribe(server.onNotice),
		server.session.Listen(server.onIdentity),
	}
	defer func() {
		for _, stop := range stops {
			stop()
		}
		close(server.done)
	}()

	for {
		select {
		case client := <-server.register:
			server.registerClient(client)

		case client := <-server.unregister:
			server.unregisterClient(client)

		case out := <-server.broadcast:
			server.broadcastToClients(out)

		case <-ctx.Done():
			// read threads notice the closed connection and exit
			for client := range server.clients {
				client.conn.Close()
			}
			return
		}
	}
}

func (server *WsServer) publish(out *outbound) {
	select {
	case server.broadcast <- out:
	case <-server.done:
	}
}

func (server *WsServer) onSnapshot(snapshot message.Snapshot) {
	m, err := jsonrpc2.Notify(MessagesAction, snapshot)
	if err != nil {
		utils.Log().Error(err, "error while create jsonrpc2 notify")
		return
	}
	server.publish(&outbound{conversationID: snapshot.ConversationID, payload: m.Encode()})
}

func (server *WsServer) onNotice(notice notification.Notice) {
	m, err := jsonrpc2.Notify(NoticeAction, notice)
	if err != nil {
		utils.Log().Error(err, "error while create jsonrpc2 notify")
		return
	}
	server.publish(&outbound{payload: m.Encode()})
}

func (server *WsServer) onIdentity(u *user.DBUser) {
	if u == nil {
		server.views.reset()
	}

	m, err := jsonrpc2.Notify(IdentityAction, &Identity{User: u, Registered: u != nil && server.session.Registered()})
	if err != nil {
		utils.Log().Error(err, "error while create jsonrpc2 notify")
		return
	}
	server.publish(&outbound{signOut: u == nil, payload: m.Encode()})
}

// add new client connection
func (server *WsServer) registerClient(client *Client) {
	server.clients[client] = true
	utils.Log().V(2).Info(fmt.Sprintf("registered %s id: %s", client.uid, client.GetID()))
	utils.Log().V(2).Info(fmt.Sprintf("client counts %d", len(server.clients)))
}

// remove client connection
func (server *WsServer) unregisterClient(client *Client) {
	if _, ok := server.clients[client]; ok {
		delete(server.clients, client)
		close(client.send)
		utils.Log().V(2).Info(fmt.Sprintf("del connection %s @%s", client.uid, client.conn.RemoteAddr().String()))
	}
}

func (server *WsServer) broadcastToClients(out *outbound) {
	for client := range server.clients {
		if out.signOut {
			client.clearViews()
		}
		if out.conversationID != "" && !client.isViewing(out.conversationID) {
			continue
		}
		client.SendMsg(out.payload)
	}
}
