package user

import (
	"net/http"

	"chatey/auth"
	"chatey/jsonrpc2"

	"github.com/gin-gonic/gin"
)

// RequireSession checks that the request carries session claims for the
// identity currently signed in. The returned status is the one to answer with.
func RequireSession(ctx *gin.Context, session I_Session) (*DBUser, *jsonrpc2.RPCError, int) {
	claims, code := auth.ValidUser(ctx)
	if claims == nil {
		return nil, &jsonrpc2.RPCError{Code: code, Message: "unauthorized"}, code
	}

	current := session.User()
	if current == nil {
		return nil, &jsonrpc2.RPCError{Code: http.StatusUnauthorized, Message: "not signed in"}, http.StatusUnauthorized
	}

	if current.UID != claims.GetUID() {
		return nil, &jsonrpc2.RPCError{Code: http.StatusBadRequest, Message: "ilegal jwt"}, http.StatusBadRequest
	}

	return current, nil, http.StatusOK
}
