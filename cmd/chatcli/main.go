// Command chatcli is a terminal front end for the chat API's sign-in flow.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/otpchat/chat-api/internal/client/api"
	"github.com/otpchat/chat-api/internal/client/authflow"
	"github.com/otpchat/chat-api/internal/client/session"
	redisdb "github.com/otpchat/chat-api/internal/infrastructure/db/redis"
	"github.com/otpchat/chat-api/internal/pkg/config"
	"github.com/otpchat/chat-api/pkg/logger"
)

func main() {
	view := flag.String("view", "", "start view: login, register, otp or dashboard")
	flag.Parse()

	cfg, err := config.LoadClient()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: true, Output: os.Stderr})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, bus, closeFn, err := sessionBackend(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("session backend")
	}
	defer closeFn()

	sess := session.NewManager(store, bus, log)
	if _, err := sess.Load(ctx); err != nil {
		log.Fatal().Err(err).Msg("load session")
	}
	go func() {
		if err := sess.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn().Err(err).Msg("session watch stopped")
		}
	}()

	client := api.New(cfg.APIBaseURL,
		api.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout}),
		api.WithLogger(log),
	)
	flow := authflow.New(client, sess, authflow.Options{
		Hint:     session.ParseView(*view),
		Cooldown: cfg.ResendCooldown,
		Log:      log,
	})
	defer flow.Close()
	flow.OnCooldownExpired(func() { fmt.Println("\nYou can request a new OTP now (type: resend).") })

	run(ctx, flow, client, sess)
}

func sessionBackend(ctx context.Context, cfg *config.ClientConfig, log zerolog.Logger) (session.Store, session.Broadcaster, func(), error) {
	if cfg.SessionBackend == config.SessionFile {
		return session.NewFileStore(cfg.SessionFile, log), nil, func() {}, nil
	}
	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	store := session.NewRedisStore(rdb, cfg.SessionKey, 0, log)
	bus := session.NewRedisBroadcaster(rdb, cfg.SessionKey+":changes")
	return store, bus, func() { _ = rdb.Close() }, nil
}

func run(ctx context.Context, flow *authflow.Controller, client *api.Client, sess *session.Manager) {
	in := bufio.NewScanner(os.Stdin)
	for ctx.Err() == nil {
		prompt(flow)
		if !in.Scan() {
			return
		}
		line := strings.TrimSpace(in.Text())
		if line == "quit" || line == "exit" {
			return
		}

		err := handle(ctx, flow, client, sess, line)
		switch {
		case err == nil:
		case errors.Is(err, authflow.ErrWrongView):
			fmt.Println("That command is not available here.")
		default:
			fmt.Println(describe(err))
			flow.DismissError()
		}
	}
}

// describe renders a failure for the terminal. Network and server errors
// get a retry hint; everything else needs different input.
func describe(err error) string {
	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		return fmt.Sprintf("Error: %v", err)
	}
	if apiErr.Retryable() {
		return fmt.Sprintf("Error: %s. Please try again.", apiErr.Message)
	}
	return "Error: " + apiErr.Message
}

func prompt(flow *authflow.Controller) {
	switch flow.View() {
	case authflow.ViewLogin:
		fmt.Print("[login] phone number (or 'register'): ")
	case authflow.ViewRegister:
		fmt.Print("[register] <phone> <full name> (or 'login'): ")
	case authflow.ViewOTP:
		phone, _ := flow.Pending()
		if left := flow.CooldownRemaining(); left > 0 {
			fmt.Printf("[otp %s] code, 'back' or 'resend' in %ds: ", phone, int(left.Seconds()+0.5))
		} else {
			fmt.Printf("[otp %s] code, 'back' or 'resend': ", phone)
		}
	case authflow.ViewDashboard:
		fmt.Print("[dashboard] 'me', 'logout' or 'quit': ")
	}
}

func handle(ctx context.Context, flow *authflow.Controller, client *api.Client, sess *session.Manager, line string) error {
	switch flow.View() {
	case authflow.ViewLogin:
		if line == "register" {
			return flow.GoToRegister()
		}
		if err := flow.SubmitLogin(ctx, line); err != nil {
			return err
		}
		fmt.Println("Login successful.")
	case authflow.ViewRegister:
		if line == "login" {
			return flow.GoToLogin()
		}
		phone, name, _ := strings.Cut(line, " ")
		if err := flow.SubmitRegistration(ctx, phone, name); err != nil {
			return err
		}
		fmt.Println("OTP sent successfully. Please verify your phone number.")
	case authflow.ViewOTP:
		switch line {
		case "back":
			return flow.BackToRegister(ctx)
		case "resend":
			if err := flow.ResendOTP(ctx); err != nil {
				return err
			}
			fmt.Println("A new OTP has been sent.")
		default:
			if err := flow.SubmitOTP(ctx, line); err != nil {
				return err
			}
			fmt.Println("Phone number verified.")
		}
	case authflow.ViewDashboard:
		switch line {
		case "me":
			u, err := client.CurrentUser(ctx, sess.Snapshot().AccessToken)
			if err != nil {
				return err
			}
			fmt.Printf("%s (%s) verified=%t\n", u.FullName, u.PhoneNumber, u.IsVerified)
		case "logout":
			if err := flow.Logout(ctx); err != nil {
				return err
			}
			fmt.Println("Logged out.")
		default:
			return authflow.ErrWrongView
		}
	}
	return nil
}
