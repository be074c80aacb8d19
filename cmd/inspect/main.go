package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

// storedMessage mirrors the on-disk record. Kept local so the inspector
// stays independent of the server packages.
type storedMessage struct {
	ID            string  `json:"id"`
	Meeting       string  `json:"meeting"`
	Sender        string  `json:"sender"`
	RecipientUser *string `json:"recipient_name"`
	Content       string  `json:"content"`
	Kind          string  `json:"kind"`
	AtUnixNano    int64   `json:"at"`
	IsRead        bool    `json:"is_read"`
}

func main() {
	dbPath := flag.String("db", "/tmp/meet-hub-badger", "Path to badger DB")
	meeting := flag.String("meeting", "", "Meeting ID to scan (empty scans everything)")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	header := color.New(color.BgBlack, color.FgGreen).Render(
		fmt.Sprintf("meet-hub messages (%s)", *dbPath))
	fmt.Println(header)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Time", "Meeting", "Sender", "To", "Kind", "Read", "Content"})
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

	prefix := "msg:"
	if *meeting != "" {
		prefix = fmt.Sprintf("msg:%s:", *meeting)
	}

	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()

			err := item.Value(func(v []byte) error {
				var msg storedMessage
				if err := json.Unmarshal(v, &msg); err != nil {
					// Skip the broken record instead of stopping the whole scan
					fmt.Printf("Error unmarshaling key %s: %v\n", string(item.Key()), err)
					return nil
				}

				recipient := color.Gray.Render("public")
				if msg.RecipientUser != nil {
					recipient = color.Yellow.Render(*msg.RecipientUser)
				}

				read := " "
				if msg.IsRead {
					read = "✓"
				}

				// 8 first characters of the key's UUID suffix for readability
				rawKey := string(item.Key())
				displayKey := rawKey
				if idx := strings.LastIndex(rawKey, ":"); idx >= 0 && len(rawKey) > idx+9 {
					displayKey = rawKey[:idx+9] + "…"
				}

				table.Append([]string{
					displayKey,
					time.Unix(0, msg.AtUnixNano).UTC().Format("15:04:05"),
					msg.Meeting,
					msg.Sender,
					recipient,
					msg.Kind,
					read,
					msg.Content,
				})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		log.Fatal(err)
	}

	table.Render()
}

func openDB(path string) (*badger.DB, error) {
	// BypassLockGuard allows opening while the server holds the lock
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true)

	return badger.Open(opts)
}
