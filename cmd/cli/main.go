// Command keepsake is a CLI client for the Keepsake service.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	u "github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/keepsake-app/keepsake/internal/backend"
	"github.com/keepsake-app/keepsake/internal/capsule"
	"github.com/keepsake-app/keepsake/internal/clock"
	"github.com/keepsake-app/keepsake/internal/engine"
	"github.com/keepsake-app/keepsake/internal/model"
	"github.com/keepsake-app/keepsake/internal/notify"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// ---- config/token store ----

func cfgDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "keepsake")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "keepsake")
}

func tokenPath() string { return filepath.Join(cfgDir(), "token.json") }

// ---- utils ----

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

func askPassword(p string) string {
	if p != "" {
		return p
	}
	fmt.Fprint(os.Stderr, "password: ")
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		fail(err)
	}
	return string(b)
}

func mustID(s string) u.UUID {
	id, err := u.FromString(s)
	if err != nil {
		fail(fmt.Errorf("invalid id %q", s))
	}
	return id
}

func usage() {
	fmt.Fprintf(os.Stderr, `keepsake CLI
Usage:
  keepsake -addr URL <cmd> [args]

Commands:
  version
  register    -u <username> [-p <password>]
  login       -u <username> [-p <password>]          (saves token)
  create-room -name <name> [-visibility public|private] [-track <preset>]
              [-days D -hours H -minutes M | -unlock-at RFC3339]
  rooms                                              (your rooms + lock state)
  discover                                           (public feed)
  seal        -id <room> [-days D -hours H -minutes M | -unlock-at RFC3339]
  unseal      -id <room>
  rm-room     -id <room>
  add         -room <id> -type <photo|note|audio|video|music> -title <t> [-content <c>]
  memories    -room <id>
  hide        -room <id> -id <memory>
  purge       -room <id>                             (retention-eligible only)
  link        -token <share token>
  watch       [-tick <interval>]                     (announce unlocks until ^C)
`)
	os.Exit(2)
}

// ---- wiring ----

type app struct {
	eng   *engine.Engine
	creds *backend.FileCredentials
	auth  *backend.AuthClient
}

func newApp(addr string, log *zap.Logger, fired func(id, title, body string)) *app {
	clk := clock.System{}
	creds := backend.NewFileCredentials(tokenPath(), clk)
	cl := backend.NewClient(addr, creds, nil)
	sched := notify.NewScheduler(notify.NewInProcess(log, fired), clk, log)
	return &app{
		eng:   engine.New(cl, sched, clk, log),
		creds: creds,
		auth:  backend.NewAuthClient(addr, nil),
	}
}

func (a *app) principal() u.UUID {
	raw, err := a.creds.UserID()
	if err != nil || raw == "" {
		fail(fmt.Errorf("not logged in (run login first)"))
	}
	return mustID(raw)
}

func capsuleFromFlags(days, hours, minutes int, unlockAt string) *model.CapsuleConfig {
	if unlockAt != "" {
		at, err := time.Parse(time.RFC3339, unlockAt)
		if err != nil {
			fail(fmt.Errorf("bad -unlock-at: %v", err))
		}
		cfg, err := model.NewFixedDateCapsule(at, time.Now())
		if err != nil {
			fail(err)
		}
		return &cfg
	}
	if days == 0 && hours == 0 && minutes == 0 {
		return nil
	}
	cfg, err := model.NewDurationCapsule(days, hours, minutes)
	if err != nil {
		fail(err)
	}
	return &cfg
}

type roomRow struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Visibility string `json:"visibility"`
	Locked     bool   `json:"locked"`
	UnlockAt   string `json:"unlock_at,omitempty"`
	Remaining  string `json:"remaining,omitempty"`
	ShareToken string `json:"share_token,omitempty"`
}

func (a *app) roomRows(rooms []model.Room) []roomRow {
	rows := make([]roomRow, 0, len(rooms))
	now := time.Now()
	for i := range rooms {
		st := a.eng.CurrentLockState(&rooms[i], now)
		row := roomRow{
			ID:         rooms[i].ID.String(),
			Name:       rooms[i].Name,
			Visibility: string(rooms[i].Visibility),
			Locked:     st.Locked,
			ShareToken: rooms[i].ShareToken,
		}
		if !st.UnlockAt.IsZero() {
			row.UnlockAt = st.UnlockAt.UTC().Format(time.RFC3339)
			row.Remaining = st.Remaining.String()
		}
		rows = append(rows, row)
	}
	return rows
}

// ---- main ----

func main() {
	addr := flag.String("addr", "http://localhost:8080", "server base URL")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}
	cmd := flag.Arg(0)
	args := flag.Args()[1:]

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	log := zap.NewNop()
	a := newApp(*addr, log, nil)
	defer a.eng.Stop()

	switch cmd {

	case "version":
		fmt.Printf("keepsake %s (%s)\n", version, buildDate)

	case "register":
		fs := flag.NewFlagSet("register", flag.ExitOnError)
		username := fs.String("u", "", "username")
		password := fs.String("p", "", "password")
		_ = fs.Parse(args)
		if *username == "" {
			fail(fmt.Errorf("need -u"))
		}
		id, err := a.auth.Register(ctx, *username, askPassword(*password))
		if err != nil {
			fail(err)
		}
		fmt.Println(id)

	case "login":
		fs := flag.NewFlagSet("login", flag.ExitOnError)
		username := fs.String("u", "", "username")
		password := fs.String("p", "", "password")
		_ = fs.Parse(args)
		if *username == "" {
			fail(fmt.Errorf("need -u"))
		}
		tok, err := a.auth.Login(ctx, *username, askPassword(*password))
		if err != nil {
			fail(err)
		}
		if err := a.creds.Save(tok.AccessToken, tok.ExpiresAt, tok.UserID); err != nil {
			fail(err)
		}
		fmt.Println("ok")

	case "create-room":
		fs := flag.NewFlagSet("create-room", flag.ExitOnError)
		name := fs.String("name", "", "room name")
		visibility := fs.String("visibility", "private", "public|private")
		track := fs.String("track", "", "background track preset")
		days := fs.Int("days", 0, "capsule days")
		hours := fs.Int("hours", 0, "capsule hours")
		minutes := fs.Int("minutes", 0, "capsule minutes")
		unlockAt := fs.String("unlock-at", "", "fixed unlock instant (RFC3339)")
		_ = fs.Parse(args)

		prov, _ := u.NewV4()
		room, err := a.eng.CreateRoom(ctx, model.RoomSpec{
			ProvisionalID:   prov,
			Name:            *name,
			Visibility:      model.Visibility(*visibility),
			Capsule:         capsuleFromFlags(*days, *hours, *minutes, *unlockAt),
			BackgroundTrack: *track,
		})
		if err != nil {
			fail(err)
		}
		printJSON(a.roomRows([]model.Room{*room}))

	case "rooms":
		rooms, err := a.eng.ListRooms(ctx, a.principal())
		if err != nil {
			fail(err)
		}
		printJSON(a.roomRows(rooms))

	case "discover":
		rooms, err := a.eng.Discover(ctx, a.principal())
		if err != nil {
			fail(err)
		}
		printJSON(a.roomRows(rooms))

	case "seal":
		fs := flag.NewFlagSet("seal", flag.ExitOnError)
		id := fs.String("id", "", "room id")
		days := fs.Int("days", 0, "capsule days")
		hours := fs.Int("hours", 0, "capsule hours")
		minutes := fs.Int("minutes", 0, "capsule minutes")
		unlockAt := fs.String("unlock-at", "", "fixed unlock instant (RFC3339)")
		_ = fs.Parse(args)
		if *id == "" {
			fail(fmt.Errorf("need -id"))
		}
		cfg := capsuleFromFlags(*days, *hours, *minutes, *unlockAt)
		if cfg == nil {
			fail(fmt.Errorf("need a duration or -unlock-at"))
		}
		room, err := a.eng.UpdateRoom(ctx, mustID(*id), model.RoomPatch{Capsule: cfg})
		if err != nil {
			fail(err)
		}
		printJSON(a.roomRows([]model.Room{*room}))

	case "unseal":
		fs := flag.NewFlagSet("unseal", flag.ExitOnError)
		id := fs.String("id", "", "room id")
		_ = fs.Parse(args)
		if *id == "" {
			fail(fmt.Errorf("need -id"))
		}
		room, err := a.eng.UpdateRoom(ctx, mustID(*id), model.RoomPatch{RemoveCapsule: true})
		if err != nil {
			fail(err)
		}
		printJSON(a.roomRows([]model.Room{*room}))

	case "rm-room":
		fs := flag.NewFlagSet("rm-room", flag.ExitOnError)
		id := fs.String("id", "", "room id")
		_ = fs.Parse(args)
		if *id == "" {
			fail(fmt.Errorf("need -id"))
		}
		if err := a.eng.DeleteRoom(ctx, mustID(*id)); err != nil {
			fail(err)
		}
		fmt.Println("ok")

	case "add":
		fs := flag.NewFlagSet("add", flag.ExitOnError)
		room := fs.String("room", "", "room id")
		typ := fs.String("type", "note", "memory type")
		title := fs.String("title", "", "memory title")
		content := fs.String("content", "", "payload reference or inline text")
		_ = fs.Parse(args)
		if *room == "" {
			fail(fmt.Errorf("need -room"))
		}
		m, err := a.eng.AddMemory(ctx, a.principal(), model.MemorySpec{
			RoomID:  mustID(*room),
			Type:    model.MemoryType(*typ),
			Title:   *title,
			Content: *content,
		})
		if err != nil {
			fail(err)
		}
		fmt.Println(m.ID)

	case "memories":
		fs := flag.NewFlagSet("memories", flag.ExitOnError)
		room := fs.String("room", "", "room id")
		_ = fs.Parse(args)
		if *room == "" {
			fail(fmt.Errorf("need -room"))
		}
		items, err := a.eng.ListMemories(ctx, a.principal(), mustID(*room))
		if err != nil {
			fail(err)
		}
		type row struct{ ID, Type, Title, CreatedAt string }
		rows := make([]row, 0, len(items))
		for _, m := range items {
			rows = append(rows, row{
				ID: m.ID.String(), Type: string(m.Type), Title: m.Title,
				CreatedAt: m.CreatedAt.UTC().Format(time.RFC3339),
			})
		}
		printJSON(rows)

	case "hide":
		fs := flag.NewFlagSet("hide", flag.ExitOnError)
		room := fs.String("room", "", "room id")
		id := fs.String("id", "", "memory id")
		_ = fs.Parse(args)
		if *room == "" || *id == "" {
			fail(fmt.Errorf("need -room and -id"))
		}
		if err := a.eng.SoftDeleteMemory(ctx, mustID(*room), mustID(*id)); err != nil {
			fail(err)
		}
		fmt.Println("ok")

	case "purge":
		fs := flag.NewFlagSet("purge", flag.ExitOnError)
		room := fs.String("room", "", "room id")
		_ = fs.Parse(args)
		if *room == "" {
			fail(fmt.Errorf("need -room"))
		}
		n, err := a.eng.PurgeEligible(ctx, mustID(*room))
		if err != nil {
			fail(err)
		}
		fmt.Printf("purged %d\n", n)

	case "link":
		fs := flag.NewFlagSet("link", flag.ExitOnError)
		token := fs.String("token", "", "share token")
		_ = fs.Parse(args)
		if *token == "" {
			fail(fmt.Errorf("need -token"))
		}
		room, err := a.eng.ResolveShareLink(ctx, a.principal(), *token)
		if err != nil {
			fail(err)
		}
		printJSON(a.roomRows([]model.Room{*room}))

	case "watch":
		fs := flag.NewFlagSet("watch", flag.ExitOnError)
		tick := fs.Duration("tick", 15*time.Second, "state machine tick interval")
		_ = fs.Parse(args)
		runWatch(*addr, *tick)

	default:
		usage()
	}
}

// runWatch tracks the caller's rooms and announces capsule unlocks until
// interrupted. Uses its own app wiring so unlock alerts print to stdout.
func runWatch(addr string, tick time.Duration) {
	log := zap.NewNop()
	a := newApp(addr, log, func(_, title, body string) {
		fmt.Printf("%s: %s\n", title, body)
	})
	defer a.eng.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rooms, err := a.eng.ListRooms(ctx, a.principal())
	if err != nil {
		fail(err)
	}

	sm := capsule.NewStateMachine(clock.System{}, log, func(room model.Room) {
		fmt.Printf("unlocked: %s (%s)\n", room.Name, room.ID)
	})
	for _, r := range rooms {
		sm.Track(r)
	}
	sm.Start(tick)
	defer sm.Stop()

	// Retention runs on its own coarse cadence, not tied to the tick loop.
	a.eng.StartRetentionSweep(time.Hour)

	fmt.Printf("watching %d rooms (^C to stop)\n", len(rooms))
	<-ctx.Done()
	fmt.Println("bye")
}
