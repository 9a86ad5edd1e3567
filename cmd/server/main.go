package main

import (
	"log"
	"net/http"
	"os"

	"bakchod/config"
	"bakchod/internal/api"
	"bakchod/internal/call"
	"bakchod/internal/chat"
	"bakchod/internal/contacts"
	"bakchod/internal/identity"
	"bakchod/internal/invites"
	"bakchod/internal/media"
	"bakchod/internal/presence"
	"bakchod/internal/roast"
	"bakchod/internal/store"
	"bakchod/internal/store/pgstore"
	"bakchod/internal/visibility"
	"bakchod/pkg/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logg := logger.New(os.Getenv("LOG_LEVEL"))

	var docs store.Store
	if cfg.DatabaseURL != "" {
		pg, err := pgstore.Open(cfg.DatabaseURL, logg)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		docs = pg
		logg.Info("using postgres document store")
	} else {
		docs = store.NewMemory()
		logg.Warn("DATABASE_URL not set, using in-memory store")
	}

	blobs, err := media.NewLocalStore(cfg.MediaDir, cfg.MediaBaseURL)
	if err != nil {
		log.Fatalf("Failed to init media store: %v", err)
	}

	provider := identity.ProvideProvider(identity.ProvideJWT(cfg))
	resolver := identity.ProvideResolver(docs, cfg)
	chats := chat.ProvideService(docs, logg)
	tracker := presence.ProvideTracker(docs, logg)
	vis := visibility.ProvideService(docs)
	calls := call.ProvideService(docs, chats, logg)
	roasts := roast.ProvideService(chats, logg)
	contactBook := contacts.ProvideService(docs, resolver, logg)
	inviteSvc := invites.ProvideService(docs, invites.ProvideSender(cfg), cfg, logg)

	srv := api.NewServer(api.Deps{
		Provider: provider,
		Chats:    chats,
		Presence: tracker,
		Vis:      vis,
		Calls:    calls,
		Roasts:   roasts,
		Contacts: contactBook,
		Invites:  inviteSvc,
		Blobs:    blobs,
		Log:      logg,
	})

	root := http.NewServeMux()
	root.Handle(cfg.MediaBaseURL+"/", http.StripPrefix(cfg.MediaBaseURL+"/", http.FileServer(http.Dir(blobs.Dir()))))
	root.Handle("/", srv.Handler())

	logg.Info("starting http server", "addr", ":"+cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, root); err != nil {
		log.Fatalf("Failed to serve: %v", err)
	}
}
