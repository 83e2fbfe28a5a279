// hushtx is the command-line interface for the encrypted messaging wallet.
package main

import (
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/hushtx/hushtx/config"
	"github.com/hushtx/hushtx/internal/chaindata"
	"github.com/hushtx/hushtx/internal/inscription"
	"github.com/hushtx/hushtx/internal/ledger"
	"github.com/hushtx/hushtx/internal/log"
	"github.com/hushtx/hushtx/internal/message"
	"github.com/hushtx/hushtx/internal/messenger"
	"github.com/hushtx/hushtx/internal/storage"
	"github.com/hushtx/hushtx/internal/wallet"
)

func main() {
	cfg, flags, err := config.Load()
	if err != nil {
		fatal("%v", err)
	}

	logFile := cfg.Log.File
	if logFile != "" && !filepath.IsAbs(logFile) {
		logFile = filepath.Join(cfg.LogsDir(), logFile)
	}
	if err := log.Init(cfg.Log.Level, cfg.Log.JSON, logFile); err != nil {
		fatal("init logging: %v", err)
	}

	args := flags.Args
	if len(args) == 0 {
		fatal("no command given (try --help)")
	}
	cmd := args[0]
	cmdArgs := args[1:]

	switch cmd {
	case "wallet":
		cmdWallet(cfg, cmdArgs)
	case "contact":
		cmdContact(cfg, cmdArgs)
	case "msg":
		cmdMsg(cfg, cmdArgs)
	case "inscribe":
		cmdInscribe(cfg, cmdArgs)
	case "inscriptions":
		cmdInscriptions(cfg, cmdArgs)
	case "utxo":
		cmdUTXO(cfg, cmdArgs)
	case "ledger":
		cmdLedger(cfg, cmdArgs)
	default:
		fatal("unknown command: %s (try --help)", cmd)
	}
}

// ── application wiring ──────────────────────────────────────────────────

// app holds the wired collaborators for one unlocked wallet session.
type app struct {
	cfg      *config.Config
	db       storage.DB
	identity *wallet.Identity
	ledger   *ledger.Ledger
	contacts *wallet.ContactBook
	codec    *message.Codec
	fetcher  *wallet.Fetcher
	builder  *messenger.Builder
	reader   *messenger.Reader
}

// openStore opens the configured storage backend.
func openStore(cfg *config.Config) (storage.DB, error) {
	switch cfg.Storage.Backend {
	case config.StorageBadger:
		return storage.NewBadger(cfg.StoreDir())
	case config.StorageRedis:
		return storage.NewRedis(cfg.Storage.RedisAddr, cfg.Storage.RedisPassword, cfg.Storage.RedisDB)
	case config.StorageMemory:
		return storage.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// unlock loads the named wallet, prompting for the password, and wires the
// full application around its identity.
func unlock(cfg *config.Config, walletName string) *app {
	ks, err := wallet.NewKeystore(cfg.KeystoreDir())
	if err != nil {
		fatal("open keystore: %v", err)
	}

	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	seed, err := ks.Load(walletName, password)
	if err != nil {
		fatal("unlock wallet %q: %v", walletName, err)
	}

	identity, err := wallet.IdentityFromSeed(seed)
	zero(seed)
	if err != nil {
		fatal("derive identity: %v", err)
	}

	db, err := openStore(cfg)
	if err != nil {
		fatal("open store: %v", err)
	}
	walletDB := storage.NewPrefixDB(db, identity.StorageNamespace())

	led, err := ledger.Open(walletDB, nil)
	if err != nil {
		fatal("open ledger: %v", err)
	}

	client := chaindata.New(cfg.Explorer.URL, cfg.Explorer.APIKey)
	broadcastURL := cfg.Broadcast.URL
	broadcastKey := cfg.Broadcast.APIKey
	if broadcastURL == "" {
		// Explorer APIs expose broadcast next to the read endpoints.
		broadcastURL = strings.TrimRight(cfg.Explorer.URL, "/") + "/tx/raw"
		broadcastKey = cfg.Explorer.APIKey
	}
	broadcaster := chaindata.NewBroadcaster(broadcastURL, broadcastKey)

	codec := message.NewCodec(led, nil)
	fetcher := wallet.NewFetcher(client)

	return &app{
		cfg:      cfg,
		db:       db,
		identity: identity,
		ledger:   led,
		contacts: wallet.NewContactBook(walletDB),
		codec:    codec,
		fetcher:  fetcher,
		builder:  messenger.NewBuilder(identity, fetcher, codec, led, broadcaster, cfg.Fee.SatPerKB),
		reader:   messenger.NewReader(identity, client, codec, led, nil),
	}
}

func (a *app) close() {
	a.identity.Zero()
	if err := a.db.Close(); err != nil {
		log.Storage.Warn().Err(err).Msg("store close failed")
	}
}

// ── wallet ──────────────────────────────────────────────────────────────

func cmdWallet(cfg *config.Config, args []string) {
	if len(args) < 1 {
		fatal("Usage: hushtx wallet <create|import|list|address|balance> [flags]")
	}

	switch args[0] {
	case "create":
		cmdWalletCreate(cfg, args[1:])
	case "import":
		cmdWalletImport(cfg, args[1:])
	case "list":
		cmdWalletList(cfg)
	case "address":
		cmdWalletAddress(cfg, args[1:])
	case "balance":
		cmdWalletBalance(cfg, args[1:])
	default:
		fatal("Unknown wallet command: %s\nUsage: hushtx wallet <create|import|list|address|balance> [flags]", args[0])
	}
}

func cmdWalletCreate(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("wallet create", flag.ExitOnError)
	name := fs.String("name", "default", "Wallet name")
	words := fs.Int("words", 12, "Mnemonic length: 12 or 24 words")
	fs.Parse(args)

	mnemonic, err := wallet.GenerateMnemonic(*words)
	if err != nil {
		fatal("generate mnemonic: %v", err)
	}

	fmt.Println("Mnemonic (write this down!):")
	fmt.Printf("  %s\n\n", mnemonic)

	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	if string(password) != string(confirm) {
		fatal("passwords do not match")
	}

	seed, err := wallet.SeedFromMnemonic(mnemonic, "")
	if err != nil {
		fatal("derive seed: %v", err)
	}
	defer zero(seed)

	ks, err := wallet.NewKeystore(cfg.KeystoreDir())
	if err != nil {
		fatal("open keystore: %v", err)
	}
	if err := ks.Create(*name, seed, password, wallet.DefaultParams()); err != nil {
		fatal("create wallet: %v", err)
	}

	identity, err := wallet.IdentityFromSeed(seed)
	if err != nil {
		fatal("derive identity: %v", err)
	}
	defer identity.Zero()

	fmt.Printf("Created wallet %q\n", *name)
	fmt.Printf("Address:    %s\n", identity.Address())
	fmt.Printf("Public key: %s\n", identity.PublicKey().Hex())
}

func cmdWalletImport(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("wallet import", flag.ExitOnError)
	name := fs.String("name", "default", "Wallet name")
	mnemonic := fs.String("mnemonic", "", "BIP-39 mnemonic")
	keyHex := fs.String("key", "", "Raw private key (32-byte hex)")
	fs.Parse(args)

	if (*mnemonic == "") == (*keyHex == "") {
		fatal("Usage: hushtx wallet import --name <n> (--mnemonic \"...\" | --key <hex>)")
	}

	var seed []byte
	var err error
	if *mnemonic != "" {
		if !wallet.ValidateMnemonic(*mnemonic) {
			fatal("invalid mnemonic")
		}
		seed, err = wallet.SeedFromMnemonic(*mnemonic, "")
		if err != nil {
			fatal("derive seed: %v", err)
		}
	} else {
		seed, err = hex.DecodeString(strings.TrimSpace(*keyHex))
		if err != nil || len(seed) != 32 {
			fatal("private key must be 32-byte hex")
		}
	}
	defer zero(seed)

	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	if string(password) != string(confirm) {
		fatal("passwords do not match")
	}

	ks, err := wallet.NewKeystore(cfg.KeystoreDir())
	if err != nil {
		fatal("open keystore: %v", err)
	}
	if err := ks.Create(*name, seed, password, wallet.DefaultParams()); err != nil {
		fatal("import wallet: %v", err)
	}

	var identity *wallet.Identity
	if *mnemonic != "" {
		identity, err = wallet.IdentityFromSeed(seed)
	} else {
		identity, err = wallet.IdentityFromPrivateKey(seed)
	}
	if err != nil {
		fatal("derive identity: %v", err)
	}
	defer identity.Zero()

	fmt.Printf("Imported wallet %q\n", *name)
	fmt.Printf("Address: %s\n", identity.Address())
}

func cmdWalletList(cfg *config.Config) {
	ks, err := wallet.NewKeystore(cfg.KeystoreDir())
	if err != nil {
		fatal("open keystore: %v", err)
	}
	names, err := ks.List()
	if err != nil {
		fatal("list wallets: %v", err)
	}
	if len(names) == 0 {
		fmt.Println("No wallets found.")
		return
	}
	for _, name := range names {
		fmt.Println(name)
	}
}

func cmdWalletAddress(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("wallet address", flag.ExitOnError)
	name := fs.String("wallet", "default", "Wallet name")
	fs.Parse(args)

	a := unlock(cfg, *name)
	defer a.close()

	fmt.Printf("Address:    %s\n", a.identity.Address())
	fmt.Printf("Public key: %s\n", a.identity.PublicKey().Hex())
}

func cmdWalletBalance(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("wallet balance", flag.ExitOnError)
	name := fs.String("wallet", "default", "Wallet name")
	fs.Parse(args)

	a := unlock(cfg, *name)
	defer a.close()

	balance, err := a.fetcher.Balance(a.identity.Address().String())
	if err != nil {
		fatal("fetch balance: %v", err)
	}
	fmt.Printf("Confirmed:   %d sat\n", balance.Confirmed)
	fmt.Printf("Unconfirmed: %d sat\n", balance.Unconfirmed)
}

// ── contacts ────────────────────────────────────────────────────────────

func cmdContact(cfg *config.Config, args []string) {
	if len(args) < 1 {
		fatal("Usage: hushtx contact <add|list|rename|remove> [flags]")
	}
	sub := args[0]
	rest := args[1:]

	fs := flag.NewFlagSet("contact "+sub, flag.ExitOnError)
	name := fs.String("wallet", "default", "Wallet name")
	fs.Parse(rest)
	rest = fs.Args()

	a := unlock(cfg, *name)
	defer a.close()

	switch sub {
	case "add":
		if len(rest) < 2 {
			fatal("Usage: hushtx contact add <id> <pubkey-hex> [display-name]")
		}
		c := wallet.Counterparty{ID: rest[0], PublicKey: rest[1], DisplayName: rest[0]}
		if len(rest) > 2 {
			c.DisplayName = rest[2]
		}
		if err := a.contacts.Add(c); err != nil {
			fatal("add contact: %v", err)
		}
		fmt.Printf("Added contact %q\n", c.ID)

	case "list":
		contacts, err := a.contacts.List()
		if err != nil {
			fatal("list contacts: %v", err)
		}
		if len(contacts) == 0 {
			fmt.Println("No contacts.")
			return
		}
		for _, c := range contacts {
			fmt.Printf("%-16s %-24s %s\n", c.ID, c.DisplayName, c.PublicKey)
		}

	case "rename":
		if len(rest) < 2 {
			fatal("Usage: hushtx contact rename <id> <display-name>")
		}
		if err := a.contacts.Rename(rest[0], rest[1]); err != nil {
			fatal("rename contact: %v", err)
		}
		fmt.Printf("Renamed contact %q\n", rest[0])

	case "remove":
		if len(rest) < 1 {
			fatal("Usage: hushtx contact remove <id>")
		}
		if err := a.contacts.Remove(rest[0]); err != nil {
			fatal("remove contact: %v", err)
		}
		fmt.Printf("Removed contact %q\n", rest[0])

	default:
		fatal("Unknown contact command: %s", sub)
	}
}

// ── messaging ───────────────────────────────────────────────────────────

func cmdMsg(cfg *config.Config, args []string) {
	if len(args) < 1 {
		fatal("Usage: hushtx msg <send|scan|threads|redecrypt> [flags]")
	}
	sub := args[0]
	rest := args[1:]

	fs := flag.NewFlagSet("msg "+sub, flag.ExitOnError)
	name := fs.String("wallet", "default", "Wallet name")
	fs.Parse(rest)
	rest = fs.Args()

	a := unlock(cfg, *name)
	defer a.close()

	switch sub {
	case "send":
		if len(rest) < 2 {
			fatal("Usage: hushtx msg send <contact-id> <text>")
		}
		cmdMsgSend(a, rest[0], strings.Join(rest[1:], " "))
	case "scan":
		messages := scanMessages(a)
		printMessages(messages)
	case "threads":
		messages := scanMessages(a)
		for _, thread := range messenger.OrganizeIntoThreads(messages) {
			fmt.Printf("── %s ──\n", thread.CounterpartyID)
			printMessages(thread.Messages)
			fmt.Println()
		}
	case "redecrypt":
		contacts, err := a.contacts.List()
		if err != nil {
			fatal("list contacts: %v", err)
		}
		messages := scanMessages(a)
		messages = a.reader.ReDecrypt(messages, contacts)
		printMessages(messages)
	default:
		fatal("Unknown msg command: %s", sub)
	}
}

func cmdMsgSend(a *app, contactID, text string) {
	contact, err := a.contacts.Get(contactID)
	if err != nil {
		fatal("%v", err)
	}

	built, err := a.builder.BuildMessageTx(contact, []byte(text))
	if err != nil {
		fatal("build transaction: %v", err)
	}
	if built.Encrypt.Truncated {
		fmt.Fprintln(os.Stderr, "Warning: message exceeded the payload cap and was truncated")
	}

	txid, err := a.builder.Send(built)
	if err != nil {
		if messenger.IsBroadcastRejection(err) {
			fmt.Fprintf(os.Stderr, "Broadcast failed: %v\n", err)
			fmt.Fprintln(os.Stderr, "Raw transaction hex (submit manually):")
			fmt.Println(built.RawHex)
			os.Exit(1)
		}
		fatal("broadcast: %v", err)
	}

	fmt.Printf("Sent. txid: %s\n", txid)
	fmt.Printf("Invoice:   %s\n", built.Encrypt.InvoiceNumber)
	fmt.Printf("Fee:       %d sat\n", built.Fee)
}

func scanMessages(a *app) []messenger.OnChainMessage {
	contacts, err := a.contacts.List()
	if err != nil {
		fatal("list contacts: %v", err)
	}
	messages, err := a.reader.Scan(contacts, a.cfg.Explorer.HistoryLimit)
	if err != nil {
		fatal("scan: %v", err)
	}
	return messages
}

func printMessages(messages []messenger.OnChainMessage) {
	if len(messages) == 0 {
		fmt.Println("No messages.")
		return
	}
	for _, m := range messages {
		direction := "recv"
		if m.IsFromSelf {
			direction = "sent"
		}
		marker := ""
		if m.Suspect {
			marker = " [integrity warning]"
		}
		who := m.CounterpartyID
		if who == "" {
			who = m.SenderRef
		}
		fmt.Printf("%s  %s  %-16s %s%s\n",
			formatTimestamp(m.TimestampMs), direction, who, m.Plaintext, marker)
	}
}

// ── inscriptions ────────────────────────────────────────────────────────

func cmdInscribe(cfg *config.Config, args []string) {
	if len(args) < 1 {
		fatal("Usage: hushtx inscribe <text|file|profile> [flags] <arg>")
	}
	sub := args[0]
	rest := args[1:]

	fs := flag.NewFlagSet("inscribe "+sub, flag.ExitOnError)
	name := fs.String("wallet", "default", "Wallet name")
	fs.Parse(rest)
	rest = fs.Args()

	if len(rest) < 1 {
		fatal("Usage: hushtx inscribe %s <arg>", sub)
	}

	a := unlock(cfg, *name)
	defer a.close()

	var contentType string
	var payload []byte
	switch sub {
	case "text":
		contentType = "text/plain"
		payload = []byte(strings.Join(rest, " "))
	case "file":
		data, err := os.ReadFile(rest[0])
		if err != nil {
			fatal("read file: %v", err)
		}
		contentType = mime.TypeByExtension(filepath.Ext(rest[0]))
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		payload = data
	case "profile":
		if !json.Valid([]byte(rest[0])) {
			fatal("profile must be valid JSON")
		}
		contentType = "application/json"
		payload = []byte(rest[0])
	default:
		fatal("Unknown inscribe command: %s", sub)
	}

	script := inscription.EncodeScript(a.identity.Address(), contentType, payload)
	built, err := a.builder.BuildInscriptionTx(script, inscription.OutputValue)
	if err != nil {
		fatal("build transaction: %v", err)
	}

	txid, err := a.builder.Send(built)
	if err != nil {
		if messenger.IsBroadcastRejection(err) {
			fmt.Fprintf(os.Stderr, "Broadcast failed: %v\n", err)
			fmt.Fprintln(os.Stderr, "Raw transaction hex (submit manually):")
			fmt.Println(built.RawHex)
			os.Exit(1)
		}
		fatal("broadcast: %v", err)
	}

	fmt.Printf("Inscribed. txid: %s\n", txid)
	fmt.Printf("Content type: %s (%d bytes)\n", contentType, len(payload))
	fmt.Printf("Fee:          %d sat\n", built.Fee)
}

func cmdInscriptions(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("inscriptions", flag.ExitOnError)
	name := fs.String("wallet", "default", "Wallet name")
	fs.Parse(args)

	a := unlock(cfg, *name)
	defer a.close()

	found, err := a.reader.ScanInscriptions(cfg.Explorer.HistoryLimit)
	if err != nil {
		fatal("scan inscriptions: %v", err)
	}
	if len(found) == 0 {
		fmt.Println("No inscriptions.")
		return
	}
	for _, ins := range found {
		fmt.Printf("%s:%d  %-24s %-10s %d bytes\n",
			ins.TxID, ins.OutputIndex, ins.ContentType, ins.Content.Kind, ins.SizeBytes)
		switch ins.Content.Kind {
		case inscription.KindText:
			fmt.Printf("    %s\n", ins.Content.Text)
		case inscription.KindProfileV1, inscription.KindProfileV2:
			if p := ins.Content.Profile; p != nil && p.Username != "" {
				fmt.Printf("    username: %s\n", p.Username)
			}
		}
	}
}

// ── UTXOs ───────────────────────────────────────────────────────────────

func cmdUTXO(cfg *config.Config, args []string) {
	if len(args) < 1 || args[0] != "list" {
		fatal("Usage: hushtx utxo list [flags]")
	}
	fs := flag.NewFlagSet("utxo list", flag.ExitOnError)
	name := fs.String("wallet", "default", "Wallet name")
	fs.Parse(args[1:])

	a := unlock(cfg, *name)
	defer a.close()

	utxos, err := a.fetcher.FetchSpendable(a.identity.Address().String())
	if err != nil {
		fatal("fetch UTXOs: %v", err)
	}
	if len(utxos) == 0 {
		fmt.Println("No spendable outputs.")
		return
	}
	var total uint64
	for _, u := range utxos {
		fmt.Printf("%s  %12d sat\n", u.Outpoint, u.Value)
		total += u.Value
	}
	fmt.Printf("Total: %d sat across %d outputs\n", total, len(utxos))
}

// ── ledger ──────────────────────────────────────────────────────────────

func cmdLedger(cfg *config.Config, args []string) {
	if len(args) < 1 {
		fatal("Usage: hushtx ledger <export|import|cleanup> [flags] [file]")
	}
	sub := args[0]
	rest := args[1:]

	fs := flag.NewFlagSet("ledger "+sub, flag.ExitOnError)
	name := fs.String("wallet", "default", "Wallet name")
	fs.Parse(rest)
	rest = fs.Args()

	a := unlock(cfg, *name)
	defer a.close()

	switch sub {
	case "export":
		if len(rest) < 1 {
			fatal("Usage: hushtx ledger export <file>")
		}
		contactKeys, err := a.contacts.KeysByID()
		if err != nil {
			fatal("collect contact keys: %v", err)
		}
		data, err := a.ledger.Export(a.identity.Address().String(), contactKeys)
		if err != nil {
			fatal("export ledger: %v", err)
		}
		if err := os.WriteFile(rest[0], data, 0600); err != nil {
			fatal("write backup: %v", err)
		}
		fmt.Printf("Exported ledger backup to %s\n", rest[0])

	case "import":
		if len(rest) < 1 {
			fatal("Usage: hushtx ledger import <file>")
		}
		data, err := os.ReadFile(rest[0])
		if err != nil {
			fatal("read backup: %v", err)
		}
		merged, contactKeys, err := a.ledger.Import(data)
		if err != nil {
			fatal("import ledger: %v", err)
		}
		added := 0
		for id, pubKey := range contactKeys {
			if _, err := a.contacts.Get(id); err == nil {
				continue
			}
			c := wallet.Counterparty{ID: id, DisplayName: id, PublicKey: pubKey}
			if err := a.contacts.Add(c); err != nil {
				log.Wallet.Warn().Str("contact", id).Err(err).Msg("backup contact not restored")
				continue
			}
			added++
		}
		fmt.Printf("Imported %d invoice records, restored %d contacts\n", merged, added)

	case "cleanup":
		removed, err := a.ledger.Cleanup(cfg.Ledger.RetentionDays)
		if err != nil {
			fatal("cleanup: %v", err)
		}
		fmt.Printf("Removed %d expired records\n", removed)

	default:
		fatal("Unknown ledger command: %s", sub)
	}
}

// ── helpers ─────────────────────────────────────────────────────────────

func formatTimestamp(ms int64) string {
	if ms <= 0 {
		return "????-??-?? ??:??"
	}
	return time.UnixMilli(ms).UTC().Format("2006-01-02 15:04")
}

func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr) // newline after hidden input
	if err != nil {
		return nil, err
	}
	return password, nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
