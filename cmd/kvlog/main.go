package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"kvlog/pkg/kverrors"
	"kvlog/pkg/store"
)

const usage = `Usage: kvlog [flags] COMMAND [ARGS]

Commands:
  get KEY        print the value stored under KEY
  set KEY VALUE  store VALUE under KEY
  rm KEY         remove KEY
  keys           list all keys in ascending order
  compact        rewrite live records and reclaim old segments
  backup FILE    write a compressed snapshot of the store to FILE
  restore FILE   apply a snapshot previously written by backup

Flags:
  -config PATH   YAML config file (default "kvlog.yaml")
  -dir PATH      storage directory (default from config, else the
                 working directory)
`

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flags := flag.NewFlagSet("kvlog", flag.ContinueOnError)
	flags.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	configPath := flags.String("config", "kvlog.yaml", "YAML config file")
	dir := flags.String("dir", "", "storage directory")

	if err := flags.Parse(args); err != nil {
		return 2
	}
	if flags.NArg() == 0 {
		flags.Usage()
		return 2
	}

	cfg, err := initConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "kvlog: %v\n", err)
		return 1
	}
	initLogger(&cfg)

	dataDir := *dir
	if dataDir == "" {
		dataDir = cfg.Storage.DataDir
	}
	if dataDir == "" {
		if dataDir, err = os.Getwd(); err != nil {
			fmt.Fprintf(os.Stderr, "kvlog: %v\n", err)
			return 1
		}
	}

	kv, err := store.Open(dataDir, cfg.Storage)
	if err != nil {
		fmt.Fprintf(os.Stderr, "kvlog: %v\n", err)
		return 1
	}

	code := dispatch(kv, flags.Arg(0), flags.Args()[1:])
	if err := kv.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "kvlog: %v\n", err)
		if code == 0 {
			code = 1
		}
	}
	return code
}

func dispatch(kv *store.Store, command string, args []string) int {
	switch command {
	case "get":
		if len(args) != 1 {
			return badArgs("get KEY")
		}
		value, found, err := kv.Get(args[0])
		if err != nil {
			return fail(err)
		}
		if !found {
			fmt.Println("Key not found")
			return 0
		}
		fmt.Println(value)
		return 0

	case "set":
		if len(args) != 2 {
			return badArgs("set KEY VALUE")
		}
		if err := kv.Set(args[0], args[1]); err != nil {
			return fail(err)
		}
		return 0

	case "rm":
		if len(args) != 1 {
			return badArgs("rm KEY")
		}
		if err := kv.Remove(args[0]); err != nil {
			if errors.Is(err, kverrors.ErrKeyNotFound) {
				fmt.Println("Key not found")
				return 1
			}
			return fail(err)
		}
		return 0

	case "keys":
		if len(args) != 0 {
			return badArgs("keys")
		}
		for _, key := range kv.Keys() {
			fmt.Println(key)
		}
		return 0

	case "compact":
		if len(args) != 0 {
			return badArgs("compact")
		}
		if err := kv.Compact(); err != nil {
			return fail(err)
		}
		return 0

	case "backup":
		if len(args) != 1 {
			return badArgs("backup FILE")
		}
		file, err := os.Create(args[0])
		if err != nil {
			return fail(err)
		}
		if err := kv.Backup(file); err != nil {
			file.Close()
			return fail(err)
		}
		if err := file.Close(); err != nil {
			return fail(err)
		}
		return 0

	case "restore":
		if len(args) != 1 {
			return badArgs("restore FILE")
		}
		file, err := os.Open(args[0])
		if err != nil {
			return fail(err)
		}
		defer file.Close()
		if err := kv.Restore(file); err != nil {
			return fail(err)
		}
		return 0

	default:
		fmt.Fprintf(os.Stderr, "kvlog: unknown command %q\n", command)
		fmt.Fprint(os.Stderr, usage)
		return 2
	}
}

func badArgs(form string) int {
	fmt.Fprintf(os.Stderr, "kvlog: usage: kvlog %s\n", form)
	return 2
}

func fail(err error) int {
	fmt.Fprintf(os.Stderr, "kvlog: %v\n", err)
	return 1
}
