package message

import (
	"fmt"
	"net/http"

	"chatey/components/user"
	"chatey/jsonrpc2"
	"chatey/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"
	"github.com/juju/ratelimit"
)

var Logger logr.Logger = logr.Discard()

type MessageRoute struct {
	sync    *MessageSync
	session user.I_Session
	limiter *ratelimit.Bucket
	viewed  func(conversationID string) bool
}

func NewMessageRoute(l logr.Logger, limiter *ratelimit.Bucket, sync *MessageSync, session user.I_Session) MessageRoute {
	Logger = l
	Logger.V(2).Info("NewMessageRoute created")
	return MessageRoute{sync: sync, session: session, limiter: limiter}
}

// SetViewGuard keeps Cleanup from stopping a live query that open views
// still depend on.
func (me *MessageRoute) SetViewGuard(viewed func(conversationID string) bool) {
	me.viewed = viewed
}

func (me *MessageRoute) InitRouteTo(rg *gin.Engine) {
	router := rg.Group("/messages")
	router.POST("/rpc", me.RateLimit, me.RPCHandle)
}

func (me *MessageRoute) RateLimit(ctx *gin.Context) {
	if me.limiter.TakeAvailable(1) == 0 {
		ctx.AbortWithStatus(http.StatusTooManyRequests)
		return
	}
	ctx.Next()
}

func (me *MessageRoute) RPCHandle(ctx *gin.Context) {
	var jreq jsonrpc2.RPCRequest
	if err := ctx.ShouldBindJSON(&jreq); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"status": "jsonrpc fail", "message": err.Error()})
		return
	}

	Logger.V(2).Info(fmt.Sprintf("RPCHandle %s", jreq.Method))

	jres := &jsonrpc2.RPCResponse{
		JSONRPC: jsonrpc2.Version,
		ID:      jreq.ID,
	}

	statuscode := http.StatusBadRequest
	switch jreq.Method {
	case "LoadMessages":
		statuscode = me.method_LoadMessages(ctx, &jreq, jres)
	case "GetMessages":
		statuscode = me.method_GetMessages(ctx, &jreq, jres)
	case "SendMessage":
		statuscode = me.method_SendMessage(ctx, &jreq, jres)
	case "Cleanup":
		statuscode = me.method_Cleanup(ctx, &jreq, jres)
	default:
		jres.Error = &jsonrpc2.RPCError{Code: http.StatusMethodNotAllowed, Message: "method not allowed"}
	}

	if jres.Error != nil {
		Logger.Error(jres.Error, "response with error")
	}
	ctx.JSON(statuscode, jres)
}

// participant resolves the session and checks it takes part in the
// requested conversation.
func (me *MessageRoute) participant(ctx *gin.Context, jreq *jsonrpc2.RPCRequest, jres *jsonrpc2.RPCResponse, params interface{ conversation() string }) (*user.DBUser, int) {
	current, e, code := user.RequireSession(ctx, me.session)
	if e != nil {
		jres.Error = e
		return nil, code
	}

	if err := jreq.BindParams(params); err != nil {
		jres.Error = jsonrpc2.NewError(http.StatusBadRequest, err)
		return nil, http.StatusBadRequest
	}

	id := params.conversation()
	if id == "" {
		jres.Error = jsonrpc2.NewError(http.StatusBadRequest, ErrEmptyConversation)
		return nil, http.StatusBadRequest
	}

	if !utils.StringInSlice(id, current.Conversations) {
		jres.Error = jsonrpc2.NewError(http.StatusForbidden, ErrNotParticipant)
		return nil, http.StatusForbidden
	}

	return current, http.StatusOK
}

func (r *ConversationRequest) conversation() string { return r.ConversationID }

func (r *SendMessageRequest) conversation() string { return r.ConversationID }

func (me *MessageRoute) method_LoadMessages(ctx *gin.Context, jreq *jsonrpc2.RPCRequest, jres *jsonrpc2.RPCResponse) int {
	req := &ConversationRequest{}
	if _, code := me.participant(ctx, jreq, jres, req); jres.Error != nil {
		return code
	}

	if err := me.sync.LoadMessages(req.ConversationID); err != nil {
		jres.Error = jsonrpc2.NewError(http.StatusInternalServerError, err)
		return http.StatusInternalServerError
	}

	jres.Result, _ = utils.ToRawMessage(&Snapshot{ConversationID: req.ConversationID, Messages: me.sync.Messages(req.ConversationID)})
	return http.StatusOK
}

func (me *MessageRoute) method_GetMessages(ctx *gin.Context, jreq *jsonrpc2.RPCRequest, jres *jsonrpc2.RPCResponse) int {
	req := &ConversationRequest{}
	if _, code := me.participant(ctx, jreq, jres, req); jres.Error != nil {
		return code
	}

	jres.Result, _ = utils.ToRawMessage(&Snapshot{ConversationID: req.ConversationID, Messages: me.sync.Messages(req.ConversationID)})
	return http.StatusOK
}

func (me *MessageRoute) method_SendMessage(ctx *gin.Context, jreq *jsonrpc2.RPCRequest, jres *jsonrpc2.RPCResponse) int {
	req := &SendMessageRequest{}
	current, code := me.participant(ctx, jreq, jres, req)
	if jres.Error != nil {
		return code
	}

	if ok, err := utils.IsValidMessage(req.Content); !ok {
		jres.Error = jsonrpc2.InvalidInput(http.StatusBadRequest, []*jsonrpc2.InputFieldError{{Error: err.Error(), Field: "content"}})
		return http.StatusBadRequest
	}

	msg, err := me.sync.SendMessage(req.ConversationID, current.UID, req.Content)
	if err != nil {
		jres.Error = jsonrpc2.NewError(http.StatusInternalServerError, err)
		return http.StatusInternalServerError
	}

	jres.Result, _ = utils.ToRawMessage(msg)
	return http.StatusOK
}

func (me *MessageRoute) method_Cleanup(ctx *gin.Context, jreq *jsonrpc2.RPCRequest, jres *jsonrpc2.RPCResponse) int {
	current, e, code := user.RequireSession(ctx, me.session)
	if e != nil {
		jres.Error = e
		return code
	}

	var req ConversationRequest
	if err := jreq.BindParams(&req); err != nil {
		jres.Error = jsonrpc2.NewError(http.StatusBadRequest, err)
		return http.StatusBadRequest
	}

	if me.viewed != nil && me.viewed(req.ConversationID) {
		Logger.V(2).Info(fmt.Sprintf("%s left %s open for its viewers", current.UID, req.ConversationID))
	} else {
		me.sync.Cleanup(req.ConversationID)
		Logger.V(2).Info(fmt.Sprintf("%s closed %s", current.UID, req.ConversationID))
	}

	jres.Result, _ = utils.ToRawMessage(gin.H{"conversationId": req.ConversationID, "live": me.sync.IsLive(req.ConversationID)})
	return http.StatusOK
}
