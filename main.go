package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chatey/app/chat"
	"chatey/auth"
	"chatey/components/contacts"
	"chatey/components/conversation"
	"chatey/components/images"
	"chatey/components/memdb"
	"chatey/components/message"
	"chatey/components/notification"
	"chatey/components/session"
	"chatey/components/user"
	"chatey/config"
	"chatey/database"
	"chatey/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/juju/ratelimit"
	log "github.com/pion/ion-sfu/pkg/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	server         *gin.Engine
	addr           string
	confFile       string
	verbosityLevel int
	memMode        bool
	logger         = log.New()
)

func showHelp() {
	fmt.Printf("Usage:%s {params}\n", os.Args[0])
	fmt.Println("      -a {listen addr}")
	fmt.Println("      -c {config file}")
	fmt.Println("      -mem (keep everything in memory, no MongoDB)")
	fmt.Println("      -h (show help info)")
	fmt.Println("      -v {0-2} (verbosity level, default 0)")
}

func parse() bool {
	flag.StringVar(&addr, "a", "", "address to use")
	flag.StringVar(&confFile, "c", "", "config file")
	flag.IntVar(&verbosityLevel, "v", -1, "verbosity level, higher value - more logs")
	flag.BoolVar(&memMode, "mem", false, "in-memory backend")
	help := flag.Bool("h", false, "help info")
	flag.Parse()

	if *help {
		return false
	}
	return true
}

// backend is the set of repositories every component talks to.
type backend struct {
	users    user.I_UserRepo
	convs    conversation.I_ConversationRepo
	messages message.I_MessageRepo
	latest   conversation.I_LatestMessage
	images   images.I_ImageRepo
	tx       database.I_TxRunner
	close    func()
}

func mongoBackend(ctx context.Context, conf *config.Config) (*backend, error) {
	mongoclient, err := database.Connect(ctx, conf.Mongo.URI)
	if err != nil {
		return nil, err
	}
	logger.Info("MongoDB successfully connected...")

	db := mongoclient.Database(conf.Mongo.Database)
	bucket, err := gridfs.NewBucket(db, options.GridFSBucket().SetName(database.ProfileImagesBucket))
	if err != nil {
		return nil, fmt.Errorf("error creating GridFS bucket: %w", err)
	}

	messages := message.NewMessageRepository(db.Collection(database.MessagesCollection))
	if err := messages.EnsureIndexes(ctx); err != nil {
		logger.Error(err, "error creating message index")
	}

	var tx database.I_TxRunner = database.Sequential{}
	if conf.Mongo.Transactions {
		tx = database.NewMongoTx(mongoclient)
	}

	return &backend{
		users:    user.NewUserService(db.Collection(database.UsersCollection)),
		convs:    conversation.NewConversationRepository(db.Collection(database.ConversationsCollection)),
		messages: messages,
		latest:   messages,
		images:   images.NewImageService(bucket),
		tx:       tx,
		close: func() {
			if err := mongoclient.Disconnect(context.Background()); err != nil {
				logger.Error(err, "error disconnecting MongoDB")
			}
		},
	}, nil
}

func memBackend() *backend {
	store := memdb.New()
	return &backend{
		users:    store,
		convs:    store,
		messages: store,
		latest:   store,
		images:   store,
		tx:       store.Tx(),
		close:    func() {},
	}
}

func main() {
	if !parse() {
		showHelp()
		os.Exit(-1)
	}

	conf, err := config.Load(confFile)
	if err != nil {
		fmt.Println(err)
		os.Exit(-1)
	}

	if addr == "" {
		addr = conf.Addr
	}

	// Check that the -v is not set (default -1)
	if verbosityLevel < 0 {
		verbosityLevel = conf.Log.V
	}

	logger.Info(fmt.Sprintf("verbosity level is: %d", verbosityLevel))
	log.SetGlobalOptions(log.GlobalConfig{V: verbosityLevel})
	utils.SetLogger(logger)

	if err := conf.CheckSecret(memMode); err != nil {
		fmt.Println(err)
		os.Exit(-1)
	}
	if conf.JWT.Secret == "" {
		logger.Info("jwt.secret not set, using the development secret")
	}
	auth.SetSecret(conf.JWT.Secret)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var be *backend
	if memMode {
		logger.Info("running with the in-memory backend")
		be = memBackend()
	} else {
		be, err = mongoBackend(ctx, conf)
		if err != nil {
			panic(err)
		}
	}
	defer be.close()

	limiter := ratelimit.NewBucketWithRate(conf.RateLimit.Rate, conf.RateLimit.Capacity)

	var mailer notification.I_Mailer = notification.NopMailer{}
	if conf.SMTPEnabled() {
		mailer = notification.NewSMTPMailer(notification.SMTPConfig{
			Host:     conf.SMTP.Host,
			Port:     conf.SMTP.Port,
			Username: conf.SMTP.Username,
			Password: conf.SMTP.Password,
			Sender:   conf.SMTP.Sender,
		})
	}

	notification.Logger = logger
	notices := notification.NewHub(notification.DefaultRecent)
	store := session.NewStore()
	msgSync := message.NewMessageSync(ctx, be.messages, be.convs)
	directory := conversation.NewDirectory(be.convs, be.latest)
	imageCtr := images.NewImageController(be.images, conf.Images.BaseURL, conf.Images.MaxSize)
	sessionCtr := session.NewSessionController(ctx, store, be.users, imageCtr, msgSync, directory, notices)
	relationship := contacts.NewRelationship(ctx, store, be.users, be.convs, be.tx, notices, mailer)

	var provider auth.I_IdentityProvider
	if conf.GoogleEnabled() {
		provider = auth.NewGoogleProvider(conf.Google.ClientID, conf.Google.ClientSecret, conf.Google.RedirectURL)
	} else {
		logger.Info("google sign-in disabled, clientid/clientsecret not set")
	}

	server = gin.Default()
	server.Use(cors.New(cors.Config{
		AllowOrigins:     conf.Cors.Origins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	server.Use(auth.Middleware())

	userRoute := session.NewUserRoute(logger, limiter, sessionCtr, provider, auth.ExpireTime(conf.JWT.Expire), conf.Auth.Direct || memMode)
	userRoute.InitRouteTo(server)

	contactRoute := contacts.NewContactRoute(logger, limiter, relationship, store)
	contactRoute.InitRouteTo(server)

	conversationRoute := conversation.NewConversationRoute(logger, limiter, directory, be.convs, store)
	conversationRoute.InitRouteTo(server)

	wsServer := chat.NewWebsocketServer(msgSync, store, notices, verbosityLevel)

	messageRoute := message.NewMessageRoute(logger, limiter, msgSync, store)
	messageRoute.SetViewGuard(wsServer.Viewing)
	messageRoute.InitRouteTo(server)

	imageRoute := images.NewImageRoute(logger, limiter, imageCtr, sessionCtr)
	imageRoute.InitRouteTo(server)

	wsServer.InitRouteTo(server)
	go wsServer.Run(ctx)

	server.GET("/metrics", gin.WrapH(promhttp.Handler()))
	server.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/ping")
	})
	server.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	srv := &http.Server{Addr: addr, Handler: server}
	go func() {
		<-ctx.Done()
		sessionCtr.Logout()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			logger.Error(err, "error shutting down")
		}
	}()

	logger.Info("listening on " + addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error(err, "server stopped")
	}
}
