package common

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/axiomesh/axiom-relay/pkg/loggers"
	"github.com/axiomesh/axiom-relay/pkg/repo"
)

func Pretty(d any) error {
	res, err := json.MarshalIndent(d, "", "\t")
	if err != nil {
		return err
	}
	fmt.Println(string(res))
	return nil
}

func Exist(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func GetRootPath(ctx *cli.Context) (string, error) {
	return repo.LoadRepoRootFromEnv(ctx.String("repo"))
}

// PrepareRepo loads an initialized repo for offline commands
func PrepareRepo(ctx *cli.Context) (*repo.Repo, error) {
	p, err := GetRootPath(ctx)
	if err != nil {
		return nil, err
	}
	if !Exist(filepath.Join(p, repo.CfgFileName)) {
		return nil, errors.New("axiom-relay repo not exist")
	}

	r, err := repo.Load(p)
	if err != nil {
		return nil, err
	}

	// close services in offline mode
	r.Config.Monitor.Enable = false
	r.Config.JsonRPC.Enable = false

	fmt.Printf("%s-repo: %s\n", repo.AppName, r.RepoRoot)

	if err := loggers.Initialize(r, false); err != nil {
		return nil, err
	}
	return r, nil
}
