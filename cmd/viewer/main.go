package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"

	"quick-chat/domain/chat"
	"quick-chat/internal"
	"quick-chat/repositories"
)

func main() {
	// 1. Load config
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	serve := flag.Bool("serve", false, "Serve the HTML inspector instead of dumping tables")
	prefix := flag.String("prefix", "msg:", "Prefix to scan (msg:, user:, unseen:)")
	flag.Parse()

	// 2. Open Badger in Read-Only mode
	// Note: BypassLockGuard allows opening if another process (the server) holds the lock
	opts := badger.DefaultOptions(config.BadgerFilepath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if *serve {
		// We provide a minimal stats provider since the server isn't running here
		emptyStats := func() map[string]any {
			return map[string]any{
				"Status": "Viewer Mode (Read-Only)",
				"Time":   time.Now().Format(time.RFC822),
			}
		}
		fmt.Printf("🌐 Viewer started at http://localhost:%d/inspect\n", config.DebugPort)
		internal.StartDebugServer(db, config.DebugPort, "/inspect", ViewerMapper, emptyStats)
		return
	}

	if err := dumpTable(db, *prefix); err != nil {
		log.Fatal(err)
	}
}

func dumpTable(db *badger.DB, prefix string) error {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Type", "Timestamp", "Entity ID", "Detail"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	err := db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()

			// mid: rows only hold primary keys, nothing readable to show
			if strings.HasPrefix(string(item.Key()), "mid:") {
				continue
			}

			err := item.Value(func(v []byte) error {
				row := ViewerMapper(string(item.Key()), v)
				table.Append([]string{row.Key, row.Type, row.Timestamp, row.EntityID, row.Detail})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	table.Render()
	return nil
}

// ViewerMapper decodes the known key families for display. Unseen index rows
// carry the primary key as value, so only the key itself is informative.
func ViewerMapper(key string, val []byte) internal.InspectRow {
	row := internal.DefaultMapper(key, val)

	switch {
	case strings.HasPrefix(key, "msg:"):
		var message chat.Message
		if err := json.Unmarshal(val, &message); err != nil {
			return row
		}
		row.Type = "MESSAGE"
		row.Timestamp = message.CreatedAt.Format("15:04:05")
		row.EntityID = shorten(message.ID.String())
		detail := message.Text
		if message.ImageRef != "" {
			detail += " [image:" + message.ImageRef + "]"
		}
		if message.Seen {
			detail += " (seen)"
		}
		row.Detail = detail

	case strings.HasPrefix(key, "user:"):
		var user repositories.User
		if err := json.Unmarshal(val, &user); err != nil {
			return row
		}
		row.Type = "USER"
		row.Timestamp = user.CreatedAt.Format("15:04:05")
		row.EntityID = shorten(string(user.ID))
		row.Detail = fmt.Sprintf("%s <%s>", user.FullName, user.Email)

	case strings.HasPrefix(key, "unseen:"):
		row.Type = "UNSEEN"
		row.Detail = string(val)
	}
	return row
}

func shorten(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
