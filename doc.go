// Package syncline is an offline-first synchronization engine for
// applications whose server-backed records must stay readable and writable
// without connectivity.
//
// The engine keeps a persistent, versioned local cache of each tracked
// record, queues mutations made while offline, and reconciles both sides
// when connectivity returns: structured records merge field by field, list
// records take the newer side wholesale, and every drop or failure is
// surfaced through the sync state rather than swallowed.
//
// Typical use:
//
//	cfg := syncline.DefaultConfig()
//	cfg.Engine.DeviceID = deviceID
//	cfg.Remote.BaseURL = "https://api.example.com"
//	engine, err := syncline.New(ctx, cfg)
//	defer engine.Close()
//
//	engine.Run(ctx)                 // background probe, auto-drain, periodic sync
//	engine.SetToken(authToken)
//	engine.SyncAll(ctx)             // or wait for the periodic job
//
//	engine.Enqueue(ctx, syncline.Op{...})  // offline-safe mutation
//	state := engine.State()                // connectivity, queue depth, errors
package syncline
