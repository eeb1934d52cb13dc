// Command cycles is the terminal front end for the wallet custody service:
// create, unlock, back up and import passkey-protected Cosmos wallets, and
// move tokens once unlocked.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/dusterbloom/wallet-gamma/custody"
	"github.com/dusterbloom/wallet-gamma/ledger"
)

func main() {
	log.SetFlags(0)
	if len(os.Args) < 2 {
		usage()
		return
	}

	switch os.Args[1] {
	case "setup":
		setupCmd()
	case "load":
		loadCmd()
	case "export":
		exportCmd()
	case "import":
		importCmd()
	case "send":
		sendCmd()
	case "balance":
		balanceCmd()
	default:
		usage()
	}
}

func usage() {
	fmt.Println(`usage: cycles <command> [flags]

commands:
  setup    register a passkey and create a new wallet
  load     unlock an existing wallet
  export   print the recovery phrase and QR backup payload
  import   restore a wallet from a recovery phrase
  send     transfer tokens from the unlocked wallet
  balance  query the unlocked wallet's balance`)
}

type runtimeFlags struct {
	stateDir string
	label    string
	grpc     string
	chainID  string
	denom    string
}

func (f *runtimeFlags) bind(fs *flag.FlagSet) {
	defaultState := ".cycles"
	if home, err := os.UserHomeDir(); err == nil {
		defaultState = filepath.Join(home, ".cycles")
	}
	fs.StringVar(&f.stateDir, "state", defaultState, "state directory")
	fs.StringVar(&f.label, "label", "", "identity label (username)")
	fs.StringVar(&f.grpc, "grpc", "", "chain grpc endpoint (enables send/balance)")
	fs.StringVar(&f.chainID, "chain-id", "", "chain id")
	fs.StringVar(&f.denom, "denom", "", "token denom")
}

func newService(f runtimeFlags) (*custody.Service, error) {
	cfg := custody.DefaultConfig()
	cfg.StorePath = filepath.Join(f.stateDir, "wallets.db")

	auth, err := custody.NewSoftAuthenticator(
		cfg.Ceremony,
		filepath.Join(f.stateDir, "credential.json"),
		promptPIN,
	)
	if err != nil {
		return nil, err
	}
	store, err := custody.OpenStore(cfg.StorePath)
	if err != nil {
		return nil, err
	}

	var dialer custody.Dialer
	if f.grpc != "" {
		lcfg := ledger.DefaultConfig()
		lcfg.GRPCEndpoint = f.grpc
		if f.chainID != "" {
			lcfg.ChainID = f.chainID
		}
		if f.denom != "" {
			lcfg.Denom = f.denom
		}
		dialer, err = ledger.NewDialer(lcfg, logrus.StandardLogger())
		if err != nil {
			return nil, err
		}
	}

	return custody.NewService(cfg, auth, store, dialer)
}

func promptPIN(ctx context.Context) (string, error) {
	fmt.Fprint(os.Stderr, "PIN: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func setupCmd() {
	fs := flag.NewFlagSet("setup", flag.ExitOnError)
	var f runtimeFlags
	f.bind(fs)
	mustParse(os.Args[2:], fs)
	requireLabel(f)

	svc := mustService(f)
	res := svc.Setup(context.Background(), f.label)
	printResult(res)
}

func loadCmd() {
	fs := flag.NewFlagSet("load", flag.ExitOnError)
	var f runtimeFlags
	f.bind(fs)
	mustParse(os.Args[2:], fs)
	requireLabel(f)

	svc := mustService(f)
	res := svc.Load(context.Background(), f.label)
	printResult(res)
}

func exportCmd() {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	var f runtimeFlags
	f.bind(fs)
	mustParse(os.Args[2:], fs)
	requireLabel(f)

	svc := mustService(f)
	if res := svc.Load(context.Background(), f.label); !res.Success {
		printResult(res)
		os.Exit(1)
	}
	payload, err := svc.ExportBackup()
	if err != nil {
		log.Fatalf("export: %v", err)
	}
	qr, err := payload.QR()
	if err != nil {
		log.Fatalf("export: %v", err)
	}
	fmt.Printf("recovery phrase:\n  %s\n\nqr payload:\n  %s\n", payload.Phrase, qr)
}

func importCmd() {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	var f runtimeFlags
	f.bind(fs)
	phrase := fs.String("phrase", "", "BIP39 recovery phrase")
	mustParse(os.Args[2:], fs)
	requireLabel(f)
	if *phrase == "" {
		log.Fatal("import: -phrase required")
	}

	svc := mustService(f)
	res := svc.Import(context.Background(), *phrase, f.label)
	printResult(res)
}

func sendCmd() {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	var f runtimeFlags
	f.bind(fs)
	to := fs.String("to", "", "recipient address")
	amount := fs.String("amount", "", "amount in base denom units")
	mustParse(os.Args[2:], fs)
	requireLabel(f)
	if *to == "" || *amount == "" {
		log.Fatal("send: -to and -amount required")
	}

	svc := mustService(f)
	ctx := context.Background()
	if res := svc.Load(ctx, f.label); !res.Success {
		printResult(res)
		os.Exit(1)
	}
	hash, err := svc.Send(ctx, *to, *amount, f.denom)
	if err != nil {
		log.Fatalf("send: %v", err)
	}
	fmt.Printf("tx hash: %s\n", hash)
}

func balanceCmd() {
	fs := flag.NewFlagSet("balance", flag.ExitOnError)
	var f runtimeFlags
	f.bind(fs)
	mustParse(os.Args[2:], fs)
	requireLabel(f)

	svc := mustService(f)
	ctx := context.Background()
	if res := svc.Load(ctx, f.label); !res.Success {
		printResult(res)
		os.Exit(1)
	}
	bal, err := svc.Balance(ctx, f.denom)
	if err != nil {
		log.Fatalf("balance: %v", err)
	}
	fmt.Printf("%s %s\n", bal, f.denom)
}

func mustService(f runtimeFlags) *custody.Service {
	svc, err := newService(f)
	if err != nil {
		log.Fatalf("init: %v", err)
	}
	return svc
}

func mustParse(args []string, fs *flag.FlagSet) {
	if err := fs.Parse(args); err != nil {
		log.Fatalf("parse flags: %v", err)
	}
}

func requireLabel(f runtimeFlags) {
	if f.label == "" {
		log.Fatal("-label required")
	}
}

func printResult(res custody.Result) {
	if res.Success {
		fmt.Printf("address: %s\n", res.Address)
		return
	}
	fmt.Printf("failed (%s): %s\n", res.Kind, res.Message)
}
