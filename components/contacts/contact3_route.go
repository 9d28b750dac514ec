package contacts

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"chatey/components/notification"
	"chatey/components/session"
	"chatey/components/user"
	"chatey/jsonrpc2"
	"chatey/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"
	"github.com/juju/ratelimit"
)

var Logger logr.Logger = logr.Discard()

type ContactRoute struct {
	relationship *Relationship
	session      *session.Store
	limiter      *ratelimit.Bucket
}

func NewContactRoute(l logr.Logger, limiter *ratelimit.Bucket, relationship *Relationship, store *session.Store) ContactRoute {
	Logger = l
	Logger.V(2).Info("NewContactRoute created")
	return ContactRoute{relationship, store, limiter}
}

func (me *ContactRoute) InitRouteTo(rg *gin.Engine) {
	router := rg.Group("/contacts")
	router.POST("/rpc", me.RateLimit, me.RPCHandle)
}

func (me *ContactRoute) RateLimit(ctx *gin.Context) {
	if me.limiter.TakeAvailable(1) == 0 {
		ctx.AbortWithStatus(http.StatusTooManyRequests)
		return
	}
	ctx.Next()
}

func (me *ContactRoute) RPCHandle(ctx *gin.Context) {
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
	if _, e, code := user.RequireSession(ctx, me.session); e != nil {
		jres.Error = e
		statuscode = code
	} else {
		switch jreq.Method {
		case "SendFriendRequest":
			statuscode = me.method_SendFriendRequest(&jreq, jres)
		case "AcceptRequest":
			statuscode = me.method_AcceptRequest(&jreq, jres)
		case "RejectRequest":
			statuscode = me.method_RejectRequest(&jreq, jres)
		case "GetContacts":
			statuscode = me.method_GetContacts(&jreq, jres)
		case "SearchUser":
			statuscode = me.method_SearchUser(&jreq, jres)
		default:
			jres.Error = &jsonrpc2.RPCError{Code: http.StatusMethodNotAllowed, Message: "method not allowed"}
		}
	}

	if jres.Error != nil {
		Logger.Error(jres.Error, "response with error")
	}
	ctx.JSON(statuscode, jres)
}

// outcome turns a relationship error into a response. Not-found outcomes
// and refused requests are answered with a notice, not a fault.
func outcome(err error, notice string, jres *jsonrpc2.RPCResponse) int {
	switch {
	case err == nil:
		jres.Result, _ = utils.ToRawMessage(&ResponseStatus{Done: true, Notice: notice})
		return http.StatusOK
	case errors.Is(err, user.ErrUserNotFound), errors.Is(err, ErrInvalidEmail):
		jres.Result, _ = utils.ToRawMessage(&ResponseStatus{Done: false, Notice: notification.TextUserNotFound})
		return http.StatusOK
	case errors.Is(err, ErrRequestNotFound):
		jres.Result, _ = utils.ToRawMessage(&ResponseStatus{Done: false, Notice: notification.TextRequestMissing})
		return http.StatusOK
	case errors.Is(err, ErrSelfRequest):
		jres.Result, _ = utils.ToRawMessage(&ResponseStatus{Done: false, Notice: notification.TextSelfRequest})
		return http.StatusOK
	case errors.Is(err, ErrAlreadyFriends):
		jres.Result, _ = utils.ToRawMessage(&ResponseStatus{Done: false, Notice: notification.TextAlreadyFriends})
		return http.StatusOK
	case errors.Is(err, session.ErrNotSignedIn):
		jres.Error = jsonrpc2.NewError(http.StatusUnauthorized, err)
		return http.StatusUnauthorized
	default:
		jres.Error = jsonrpc2.NewError(http.StatusInternalServerError, err)
		return http.StatusInternalServerError
	}
}

func (me *ContactRoute) method_SendFriendRequest(jreq *jsonrpc2.RPCRequest, jres *jsonrpc2.RPCResponse) int {
	var req SendFriendRequest
	if err := jreq.BindParams(&req); err != nil {
		jres.Error = jsonrpc2.NewError(http.StatusBadRequest, err)
		return http.StatusBadRequest
	}

	return outcome(me.relationship.SendFriendRequest(req.Email), notification.TextRequestSent, jres)
}

func (me *ContactRoute) method_AcceptRequest(jreq *jsonrpc2.RPCRequest, jres *jsonrpc2.RPCResponse) int {
	var req RequesterParam
	if err := jreq.BindParams(&req); err != nil {
		jres.Error = jsonrpc2.NewError(http.StatusBadRequest, err)
		return http.StatusBadRequest
	}

	return outcome(me.relationship.AcceptRequest(req.RequesterID), notification.TextRequestAccepted, jres)
}

func (me *ContactRoute) method_RejectRequest(jreq *jsonrpc2.RPCRequest, jres *jsonrpc2.RPCResponse) int {
	var req RequesterParam
	if err := jreq.BindParams(&req); err != nil {
		jres.Error = jsonrpc2.NewError(http.StatusBadRequest, err)
		return http.StatusBadRequest
	}

	return outcome(me.relationship.RejectRequest(req.RequesterID), notification.TextRequestRejected, jres)
}

func (me *ContactRoute) method_GetContacts(jreq *jsonrpc2.RPCRequest, jres *jsonrpc2.RPCResponse) int {
	res, err := me.relationship.Contacts()
	if err != nil {
		return outcome(err, "", jres)
	}

	jres.Result, _ = utils.ToRawMessage(res)
	return http.StatusOK
}

func (me *ContactRoute) method_SearchUser(jreq *jsonrpc2.RPCRequest, jres *jsonrpc2.RPCResponse) int {
	var req SearchUser
	if err := jreq.BindParams(&req); err != nil {
		jres.Error = jsonrpc2.NewError(http.StatusBadRequest, err)
		return http.StatusBadRequest
	}

	page, err := strconv.Atoi(defaultString(req.Page, "1"))
	if err != nil {
		jres.Error = jsonrpc2.InvalidInput(http.StatusBadRequest, []*jsonrpc2.InputFieldError{{Error: "page must be a number", Field: "page"}})
		return http.StatusBadRequest
	}

	limit, err := strconv.Atoi(defaultString(req.Limit, "10"))
	if err != nil || limit > 50 {
		jres.Error = jsonrpc2.InvalidInput(http.StatusBadRequest, []*jsonrpc2.InputFieldError{{Error: "limit must be a number up to 50", Field: "limit"}})
		return http.StatusBadRequest
	}

	res, err := me.relationship.Search(req.Keyword, page, limit)
	if err != nil {
		return outcome(err, "", jres)
	}

	jres.Result, _ = utils.ToRawMessage(res)
	return http.StatusOK
}

func defaultString(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
