package conversation

import (
	"errors"
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

type ConversationRoute struct {
	directory *Directory
	repo      I_ConversationRepo
	session   user.I_Session
	limiter   *ratelimit.Bucket
}

func NewConversationRoute(l logr.Logger, limiter *ratelimit.Bucket, directory *Directory, repo I_ConversationRepo, session user.I_Session) ConversationRoute {
	Logger = l
	Logger.V(2).Info("NewConversationRoute created")
	return ConversationRoute{directory, repo, session, limiter}
}

func (me *ConversationRoute) InitRouteTo(rg *gin.Engine) {
	router := rg.Group("/conversations")
	router.POST("/rpc", me.RateLimit, me.RPCHandle)
}

func (me *ConversationRoute) RateLimit(ctx *gin.Context) {
	if me.limiter.TakeAvailable(1) == 0 {
		ctx.AbortWithStatus(http.StatusTooManyRequests)
		return
	}
	ctx.Next()
}

func (me *ConversationRoute) RPCHandle(ctx *gin.Context) {
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
	case "GetConversations":
		statuscode = me.method_GetConversations(ctx, &jreq, jres)
	case "GetConversation":
		statuscode = me.method_GetConversation(ctx, &jreq, jres)
	default:
		jres.Error = &jsonrpc2.RPCError{Code: http.StatusMethodNotAllowed, Message: "method not allowed"}
	}

	if jres.Error != nil {
		Logger.Error(jres.Error, "response with error")
	}
	ctx.JSON(statuscode, jres)
}

func (me *ConversationRoute) method_GetConversations(ctx *gin.Context, jreq *jsonrpc2.RPCRequest, jres *jsonrpc2.RPCResponse) int {
	current, e, code := user.RequireSession(ctx, me.session)
	if e != nil {
		jres.Error = e
		return code
	}

	if _, err := me.directory.FetchConversations(ctx, current.UID); err != nil {
		jres.Error = jsonrpc2.NewError(http.StatusInternalServerError, err)
		return http.StatusInternalServerError
	}

	jres.Result, _ = utils.ToRawMessage(me.directory.ListFor(current))
	return http.StatusOK
}

type getConversation struct {
	ConversationID string `json:"conversationId"`
}

func (me *ConversationRoute) method_GetConversation(ctx *gin.Context, jreq *jsonrpc2.RPCRequest, jres *jsonrpc2.RPCResponse) int {
	current, e, code := user.RequireSession(ctx, me.session)
	if e != nil {
		jres.Error = e
		return code
	}

	var req getConversation
	if err := jreq.BindParams(&req); err != nil {
		jres.Error = jsonrpc2.NewError(http.StatusBadRequest, err)
		return http.StatusBadRequest
	}

	c, err := me.repo.FindConversationById(ctx, req.ConversationID)
	if err != nil {
		if errors.Is(err, ErrConversationNotFound) {
			jres.Error = jsonrpc2.NewError(http.StatusNotFound, err)
			return http.StatusNotFound
		}
		jres.Error = jsonrpc2.NewError(http.StatusInternalServerError, err)
		return http.StatusInternalServerError
	}

	if !c.HasParticipant(current.UID) {
		jres.Error = &jsonrpc2.RPCError{Code: http.StatusForbidden, Message: "not a participant"}
		return http.StatusForbidden
	}

	p := DisplayParticipant(c, current)
	jres.Result, _ = utils.ToRawMessage(&ResponseConversation{
		ID:               c.ID,
		ParticipantID:    p.ID,
		ParticipantName:  p.Name,
		ParticipantImage: p.ProfileImg,
		LastMessage:      c.LastMessage,
		LastUpdated:      c.LastUpdated,
	})
	return http.StatusOK
}
