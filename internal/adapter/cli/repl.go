// Package cli reads passenger commands line by line and drives the client.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Temutjin2k/ride-hail-client/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-client/internal/domain/types"
	"github.com/Temutjin2k/ride-hail-client/pkg/logger"
)

// ErrQuit is returned by Run when the user asked to leave.
var ErrQuit = errors.New("quit")

type Passenger interface {
	Login(ctx context.Context, nickname, password string) (string, error)
	Logout(ctx context.Context) error
	LoggedIn() bool
	SetUserPosition(ctx context.Context, pos models.Position)
	RequestCall(ctx context.Context, phone *string) (int, error)
	CancelCall(ctx context.Context) error
	FindNearbyTaxis(ctx context.Context) ([]models.TaxiInfo, error)
	LocateUser(ctx context.Context) error
	LocateTaxi(ctx context.Context) error
	State() types.CallState
	CurrentAssignment() (models.TaxiInfo, bool)
	PendingRequests() int
}

type Credentials struct {
	Nickname string
	Password string
}

type REPL struct {
	passenger Passenger
	creds     Credentials
	in        io.Reader
	out       io.Writer
	log       logger.Logger
}

func New(passenger Passenger, creds Credentials, in io.Reader, out io.Writer, log logger.Logger) *REPL {
	return &REPL{
		passenger: passenger,
		creds:     creds,
		in:        in,
		out:       out,
		log:       log,
	}
}

// Run executes commands until input ends, ctx is done or quit is typed.
// End of input gives nil, quit gives ErrQuit.
func (r *REPL) Run(ctx context.Context) error {
	lines := make(chan string)
	readErr := make(chan error, 1)

	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r.in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- sc.Err()
	}()

	r.prompt()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					return err
				default:
					return nil
				}
			}
			if err := r.Exec(ctx, line); err != nil {
				if errors.Is(err, ErrQuit) {
					return err
				}
				fmt.Fprintf(r.out, "error: %v\n", err)
			}
			r.prompt()
		}
	}
}

func (r *REPL) prompt() {
	fmt.Fprint(r.out, "> ")
}

// Exec runs one command line.
func (r *REPL) Exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	cmd, args := strings.ToLower(fields[0]), fields[1:]
	switch cmd {
	case "login":
		msg, err := r.passenger.Login(ctx, r.creds.Nickname, r.creds.Password)
		if err != nil {
			if msg != "" {
				return fmt.Errorf("%s: %w", msg, types.ErrLoginFailed)
			}
			return err
		}
		fmt.Fprintln(r.out, msg)
	case "logout":
		if err := r.passenger.Logout(ctx); err != nil {
			return err
		}
		fmt.Fprintln(r.out, "logged out")
	case "pos":
		pos, err := parsePosition(args)
		if err != nil {
			return err
		}
		r.passenger.SetUserPosition(ctx, pos)
		fmt.Fprintf(r.out, "position set to %s\n", pos)
	case "find":
		if _, err := r.passenger.FindNearbyTaxis(ctx); err != nil {
			return err
		}
	case "call":
		var phone *string
		if len(args) > 0 {
			phone = &args[0]
		}
		seq, err := r.passenger.RequestCall(ctx, phone)
		if err != nil {
			return err
		}
		fmt.Fprintf(r.out, "call #%d queued\n", seq)
	case "cancel":
		if err := r.passenger.CancelCall(ctx); err != nil {
			return err
		}
		fmt.Fprintln(r.out, "call cancelled")
	case "locate":
		return r.passenger.LocateUser(ctx)
	case "taxi":
		return r.passenger.LocateTaxi(ctx)
	case "status":
		r.status()
	case "help":
		fmt.Fprintln(r.out, "commands: login logout pos find call cancel locate taxi status quit")
	case "quit", "exit":
		return ErrQuit
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}

func (r *REPL) status() {
	fmt.Fprintf(r.out, "logged in: %t, call: %s, pending requests: %d\n",
		r.passenger.LoggedIn(), r.passenger.State(), r.passenger.PendingRequests())
	if taxi, ok := r.passenger.CurrentAssignment(); ok {
		fmt.Fprintf(r.out, "assigned taxi: %s (%s) at %s\n", taxi.CarNumber, taxi.PhoneNumber, taxi.Position)
	}
}

// parsePosition reads "<lat> <lon>" in degrees.
func parsePosition(args []string) (models.Position, error) {
	if len(args) != 2 {
		return models.Position{}, errors.New("usage: pos <lat> <lon>")
	}
	lat, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return models.Position{}, fmt.Errorf("latitude: %w", err)
	}
	lon, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return models.Position{}, fmt.Errorf("longitude: %w", err)
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return models.Position{}, errors.New("position out of range")
	}
	return models.NewPositionFromDegrees(lat, lon), nil
}
