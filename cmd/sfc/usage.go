package main

import "fmt"

func printUsage() {
	fmt.Println(`sfc - snapshot-backed container environments

Usage:
  sfc init                                  initialize the workspace
  sfc create [--from HASH] NAME...          create containers with a stable snapshot
  sfc temp [-c NAME] [--node V] [--npm V] [--rust V]
                                            branch a temp snapshot off stable
  sfc promote [-c NAME] [ALIAS]             promote a temp snapshot to stable
  sfc discard [-c NAME] [ALIAS]             discard a temp snapshot
  sfc rollback [-c NAME] SNAPSHOT           point stable at an older snapshot
  sfc delete [--force] NAME...              delete containers and reclaim snapshots
  sfc switch [--enter] NAME                 select the current container
  sfc list                                  list containers
  sfc status                                show the current container state
  sfc clean                                 remove dangling aliases and orphan snapshots
  sfc snapshots [-c NAME]                   list a container's snapshots
  sfc delete-snapshot [--force] HASH        delete one snapshot by hash prefix
  sfc share [-c NAME] [--snapshot HASH]     render a shareable snapshot summary
  sfc add [-c NAME] SPEC...                 install packages (name[@version])
  sfc remove [-c NAME] NAME...              remove packages
  sfc packages [-c NAME]                    list installed packages
  sfc history log|graph [-c NAME]           show the operation ledger
  sfc version                               print the version

Every command accepts --json for machine-readable output.`)
}
