package session

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"chatey/auth"
	"chatey/components/images"
	"chatey/components/user"
	"chatey/jsonrpc2"
	"chatey/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"
	"github.com/juju/ratelimit"
)

var Logger logr.Logger = logr.Discard()

type UserRoute struct {
	controller  *SessionController
	provider    auth.I_IdentityProvider
	limiter     *ratelimit.Bucket
	expire      auth.ExpireTime
	allowDirect bool
}

// NewUserRoute wires the sign-in endpoints. With allowDirect the gateway
// also takes assertions straight from the caller, for offline use only.
func NewUserRoute(l logr.Logger, limiter *ratelimit.Bucket, controller *SessionController, provider auth.I_IdentityProvider, expire auth.ExpireTime, allowDirect bool) UserRoute {
	Logger = l
	Logger.V(2).Info("NewUserRoute created")
	if expire <= 0 {
		expire = auth.AWeek
	}
	return UserRoute{controller, provider, limiter, expire, allowDirect}
}

func (me *UserRoute) InitRouteTo(rg *gin.Engine) {
	authGroup := rg.Group("/auth")
	if me.provider != nil {
		authGroup.GET("/google/login", me.RateLimit, me.GoogleLogin)
		authGroup.GET("/google/callback", me.RateLimit, me.GoogleCallback)
	}
	if me.allowDirect {
		authGroup.POST("/direct", me.RateLimit, me.DirectSignIn)
	}

	router := rg.Group("/usr")
	router.POST("/register", me.RateLimit, me.RegisterHandler)
	router.POST("/rpc", me.RateLimit, me.RPCHandle)
}

func (me *UserRoute) RateLimit(ctx *gin.Context) {
	if me.limiter.TakeAvailable(1) == 0 {
		ctx.AbortWithStatus(http.StatusTooManyRequests)
		return
	}
	ctx.Next()
}

func (me *UserRoute) GoogleLogin(ctx *gin.Context) {
	state, err := auth.CreateJWTWithExpire(utils.GetRandomUUID(), "", "", auth.CmdOAuthState, auth.AMinute*10)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.Redirect(http.StatusTemporaryRedirect, me.provider.AuthCodeURL(state))
}

func (me *UserRoute) GoogleCallback(ctx *gin.Context) {
	claims, err := auth.ValidateToken(ctx.Query("state"))
	if err != nil || claims.GetCmd() != auth.CmdOAuthState {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid oauth state"})
		return
	}

	assertion, err := me.provider.Exchange(ctx, ctx.Query("code"))
	if err != nil {
		Logger.Error(err, "error exchanging oauth code")
		me.controller.Store().SetError(err)
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	me.signIn(ctx, assertion)
}

func (me *UserRoute) DirectSignIn(ctx *gin.Context) {
	var assertion auth.Assertion
	if err := ctx.ShouldBindJSON(&assertion); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	me.signIn(ctx, &assertion)
}

func (me *UserRoute) signIn(ctx *gin.Context, assertion *auth.Assertion) {
	u, registered, err := me.controller.SignIn(assertion)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ErrInvalidAssertion) {
			status = http.StatusBadRequest
		}
		ctx.JSON(status, gin.H{"error": err.Error()})
		return
	}

	token, err := auth.CreateJWTToken(u.UID, u.Name, u.Email, me.expire)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.SetCookie("jwt", token, int(me.expire), "/", "", false, true)
	ctx.JSON(http.StatusOK, &ResponseSignIn{Token: token, User: u, Registered: registered})
}

// RegisterHandler takes a multipart form with "name" and an optional "image".
func (me *UserRoute) RegisterHandler(ctx *gin.Context) {
	claims, code := auth.ValidUser(ctx)
	if claims == nil {
		ctx.JSON(code, gin.H{"error": "unauthorized"})
		return
	}

	current := me.controller.Store().User()
	if current == nil || current.UID != claims.GetUID() {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": ErrNotSignedIn.Error()})
		return
	}

	name := ctx.PostForm("name")
	if ok, err := utils.IsValidName(name); !ok {
		ctx.JSON(http.StatusBadRequest, jsonrpc2.InvalidInput(http.StatusBadRequest, []*jsonrpc2.InputFieldError{{Error: err.Error(), Field: "name"}}))
		return
	}

	var (
		image       io.Reader
		contentType string
	)
	if file, err := ctx.FormFile("image"); err == nil {
		src, err := file.Open()
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "error opening image file: " + err.Error()})
			return
		}
		defer src.Close()
		image, contentType = src, imageType(file)
	} else if !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "error retrieving image file: " + err.Error()})
		return
	}

	u, err := me.controller.Register(name, image, contentType)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, ErrAlreadyRegistered):
			status = http.StatusConflict
		case errors.Is(err, images.ErrImageTooLarge), errors.Is(err, images.ErrInvalidContentType):
			status = http.StatusBadRequest
		}
		ctx.JSON(status, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, &ResponseMe{User: u, Registered: true})
}

func imageType(file *multipart.FileHeader) string {
	return file.Header.Get("Content-Type")
}

func (me *UserRoute) RPCHandle(ctx *gin.Context) {
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
	case "GetMe":
		statuscode = me.method_GetMe(ctx, &jreq, jres)
	case "GetLastError":
		statuscode = me.method_GetLastError(ctx, &jreq, jres)
	case "ClearError":
		statuscode = me.method_ClearError(ctx, &jreq, jres)
	case "Logout":
		statuscode = me.method_Logout(ctx, &jreq, jres)
	default:
		jres.Error = &jsonrpc2.RPCError{Code: http.StatusMethodNotAllowed, Message: "method not allowed"}
	}

	if jres.Error != nil {
		Logger.Error(jres.Error, "response with error")
	}
	ctx.JSON(statuscode, jres)
}

func (me *UserRoute) method_GetMe(ctx *gin.Context, jreq *jsonrpc2.RPCRequest, jres *jsonrpc2.RPCResponse) int {
	current, e, code := user.RequireSession(ctx, me.controller.Store())
	if e != nil {
		jres.Error = e
		return code
	}

	jres.Result, _ = utils.ToRawMessage(&ResponseMe{User: current, Registered: me.controller.Store().Registered()})
	return http.StatusOK
}

func (me *UserRoute) method_GetLastError(ctx *gin.Context, jreq *jsonrpc2.RPCRequest, jres *jsonrpc2.RPCResponse) int {
	if _, e, code := user.RequireSession(ctx, me.controller.Store()); e != nil {
		jres.Error = e
		return code
	}

	res := &ResponseLastError{}
	if err := me.controller.Store().Err(); err != nil {
		res.Error = err.Error()
	}
	jres.Result, _ = utils.ToRawMessage(res)
	return http.StatusOK
}

func (me *UserRoute) method_ClearError(ctx *gin.Context, jreq *jsonrpc2.RPCRequest, jres *jsonrpc2.RPCResponse) int {
	if _, e, code := user.RequireSession(ctx, me.controller.Store()); e != nil {
		jres.Error = e
		return code
	}

	me.controller.Store().ClearError()
	jres.Result, _ = utils.ToRawMessage(&ResponseLastError{})
	return http.StatusOK
}

func (me *UserRoute) method_Logout(ctx *gin.Context, jreq *jsonrpc2.RPCRequest, jres *jsonrpc2.RPCResponse) int {
	if _, e, code := user.RequireSession(ctx, me.controller.Store()); e != nil {
		jres.Error = e
		return code
	}

	me.controller.Logout()
	ctx.SetCookie("jwt", "", -1, "/", "", false, true)
	jres.Result, _ = utils.ToRawMessage(gin.H{"status": "signed out"})
	return http.StatusOK
}
