// Package client ties the synchronization layer together for a consumer
// application: one API client, one store set, one dispatcher per resource
// kind, the bulk sync controller and the session manager, all constructed
// eagerly for every known kind.
package client

import (
	"context"

	"github.com/pawsync/pawsync/internal/api"
	"github.com/pawsync/pawsync/internal/domain/pet"
	"github.com/pawsync/pawsync/internal/domain/record"
	"github.com/pawsync/pawsync/internal/domain/ticket"
	"github.com/pawsync/pawsync/internal/domain/user"
	"github.com/pawsync/pawsync/internal/session"
	"github.com/pawsync/pawsync/internal/sync"
	"github.com/pawsync/pawsync/pkg/logger"
)

// App is the application-facing entry point of the sync layer. UI code
// reads collections through the dispatchers' stores and mutates through
// the dispatchers; it never writes to a store directly.
type App struct {
	API        *api.Client
	Stores     *sync.StoreSet
	Ledger     *sync.Ledger
	Controller *sync.Controller
	Session    *session.Manager

	Pets         *sync.Dispatcher[pet.Pet]
	Feedings     *sync.Dispatcher[record.Feeding]
	Water        *sync.Dispatcher[record.Water]
	Medications  *sync.Dispatcher[record.Medication]
	PainScores   *sync.Dispatcher[record.PainScore]
	Seizures     *sync.Dispatcher[record.Seizure]
	Vitals       *sync.Dispatcher[record.Vitals]
	Movements    *sync.Dispatcher[record.Movement]
	Appointments *sync.Dispatcher[record.Appointment]
	BloodSugar   *sync.Dispatcher[record.BloodSugar]
	Gallery      *sync.Dispatcher[record.GalleryItem]
	Tickets      *sync.Dispatcher[ticket.Ticket]

	log *logger.Logger
}

// New builds a fully wired client for the given backend.
func New(cfg api.Config, log *logger.Logger) *App {
	if log == nil {
		log = logger.NewDefault("pawsync")
	}

	apiClient := api.New(cfg, log)
	remotes := api.NewRemotes(apiClient)
	stores := sync.NewStoreSet()
	ledger := sync.NewLedger()
	controller := sync.NewController(remotes, stores, ledger, log)

	app := &App{
		API:        apiClient,
		Stores:     stores,
		Ledger:     ledger,
		Controller: controller,
		Session:    session.NewManager(controller, apiClient, log),
		log:        log,

		Pets:    sync.NewDispatcher(stores.Pets, remotes.Pets(), ledger, log),
		Tickets: sync.NewDispatcher(stores.Tickets, remotes.Tickets(), ledger, log),

		Feedings:     sync.NewDispatcher(stores.Feedings, remotes.Feedings(), ledger, log, sync.Billable[record.Feeding]()),
		Water:        sync.NewDispatcher(stores.Water, remotes.Water(), ledger, log, sync.Billable[record.Water]()),
		Medications:  sync.NewDispatcher(stores.Medications, remotes.Medications(), ledger, log, sync.Billable[record.Medication]()),
		PainScores:   sync.NewDispatcher(stores.PainScores, remotes.PainScores(), ledger, log, sync.Billable[record.PainScore]()),
		Seizures:     sync.NewDispatcher(stores.Seizures, remotes.Seizures(), ledger, log, sync.Billable[record.Seizure]()),
		Vitals:       sync.NewDispatcher(stores.Vitals, remotes.Vitals(), ledger, log, sync.Billable[record.Vitals]()),
		Movements:    sync.NewDispatcher(stores.Movements, remotes.Movements(), ledger, log, sync.Billable[record.Movement]()),
		Appointments: sync.NewDispatcher(stores.Appointments, remotes.Appointments(), ledger, log, sync.Billable[record.Appointment]()),
		BloodSugar:   sync.NewDispatcher(stores.BloodSugar, remotes.BloodSugar(), ledger, log, sync.Billable[record.BloodSugar]()),
		Gallery:      sync.NewDispatcher(stores.Gallery, remotes.Gallery(), ledger, log, sync.Billable[record.GalleryItem]()),
	}
	return app
}

// SignIn authenticates and loads the initial snapshot before returning.
func (a *App) SignIn(ctx context.Context, email, password string) error {
	pair, err := a.API.Login(ctx, api.Credentials{Email: email, Password: password})
	if err != nil {
		return err
	}
	return a.Session.SetToken(ctx, pair.AccessToken)
}

// SignUp registers a new account and starts its session.
func (a *App) SignUp(ctx context.Context, email, name, password string) error {
	pair, err := a.API.Register(ctx, api.Credentials{Email: email, Name: name, Password: password})
	if err != nil {
		return err
	}
	return a.Session.SetToken(ctx, pair.AccessToken)
}

// SignOut clears the session and every local collection.
func (a *App) SignOut() {
	a.Session.Clear()
}

// CurrentUser returns the session user and whether one is signed in.
func (a *App) CurrentUser() (user.User, bool) {
	return a.Ledger.User()
}
