// Command lockspacectl works a workspace store directly, without the
// daemon. It opens the same file store lockspaced uses. Passwords are
// prompted on stdin, or taken from LOCKSPACE_PASSWORD and
// LOCKSPACE_FOLDER_PASSWORD for scripting.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"golang.org/x/term"

	"github.com/avinashreddy333/Lockspace/internal/config"
	"github.com/avinashreddy333/Lockspace/internal/crypto"
	"github.com/avinashreddy333/Lockspace/internal/logging"
	"github.com/avinashreddy333/Lockspace/internal/platform"
	"github.com/avinashreddy333/Lockspace/internal/store"
	"github.com/avinashreddy333/Lockspace/internal/workspace"
)

func main() {
	// Keep the manager's structured logs out of command output.
	if err := logging.Init(logging.Config{Level: "error", Format: "console"}); err != nil {
		dieIf(err)
	}
	// No core dumps once passwords start passing through memory.
	dieIf(platform.DisableCoreDumps())

	// ---- create ----
	createCmd := flag.NewFlagSet("create", flag.ExitOnError)
	createStore := createCmd.String("store", "", "path to store file")
	createName := createCmd.String("name", "", "workspace name")

	// ---- unlock ----
	unlockCmd := flag.NewFlagSet("unlock", flag.ExitOnError)
	unlockStore := unlockCmd.String("store", "", "path to store file")

	// ---- destroy ----
	destroyCmd := flag.NewFlagSet("destroy", flag.ExitOnError)
	destroyStore := destroyCmd.String("store", "", "path to store file")

	// ---- mkdir ----
	mkdirCmd := flag.NewFlagSet("mkdir", flag.ExitOnError)
	mkdirStore := mkdirCmd.String("store", "", "path to store file")
	mkdirName := mkdirCmd.String("name", "", "folder name")

	// ---- folders ----
	foldersCmd := flag.NewFlagSet("folders", flag.ExitOnError)
	foldersStore := foldersCmd.String("store", "", "path to store file")

	// ---- rmdir ----
	rmdirCmd := flag.NewFlagSet("rmdir", flag.ExitOnError)
	rmdirStore := rmdirCmd.String("store", "", "path to store file")
	rmdirID := rmdirCmd.String("id", "", "folder id")

	// ---- put ----
	putCmd := flag.NewFlagSet("put", flag.ExitOnError)
	putStore := putCmd.String("store", "", "path to store file")
	putFolder := putCmd.String("folder", "", "folder id")
	putFile := putCmd.String("file", "", "local file to upload")
	putName := putCmd.String("name", "", "stored name (defaults to the file's base name)")

	// ---- ls ----
	lsCmd := flag.NewFlagSet("ls", flag.ExitOnError)
	lsStore := lsCmd.String("store", "", "path to store file")
	lsFolder := lsCmd.String("folder", "", "folder id")

	// ---- get ----
	getCmd := flag.NewFlagSet("get", flag.ExitOnError)
	getStore := getCmd.String("store", "", "path to store file")
	getFolder := getCmd.String("folder", "", "folder id")
	getID := getCmd.String("id", "", "file id")
	getOut := getCmd.String("out", "", "output path (defaults to the stored name)")

	// ---- rm ----
	rmCmd := flag.NewFlagSet("rm", flag.ExitOnError)
	rmStore := rmCmd.String("store", "", "path to store file")
	rmID := rmCmd.String("id", "", "file id")

	if len(os.Args) < 2 {
		usage()
		return
	}

	switch os.Args[1] {
	case "create":
		_ = createCmd.Parse(os.Args[2:])
		dieIf(cmdCreate(*createStore, *createName))
	case "unlock":
		_ = unlockCmd.Parse(os.Args[2:])
		dieIf(cmdUnlock(*unlockStore))
	case "destroy":
		_ = destroyCmd.Parse(os.Args[2:])
		dieIf(cmdDestroy(*destroyStore))
	case "mkdir":
		_ = mkdirCmd.Parse(os.Args[2:])
		dieIf(cmdMkdir(*mkdirStore, *mkdirName))
	case "folders":
		_ = foldersCmd.Parse(os.Args[2:])
		dieIf(cmdFolders(*foldersStore))
	case "rmdir":
		_ = rmdirCmd.Parse(os.Args[2:])
		dieIf(cmdRmdir(*rmdirStore, *rmdirID))
	case "put":
		_ = putCmd.Parse(os.Args[2:])
		dieIf(cmdPut(*putStore, *putFolder, *putFile, *putName))
	case "ls":
		_ = lsCmd.Parse(os.Args[2:])
		dieIf(cmdLs(*lsStore, *lsFolder))
	case "get":
		_ = getCmd.Parse(os.Args[2:])
		dieIf(cmdGet(*getStore, *getFolder, *getID, *getOut))
	case "rm":
		_ = rmCmd.Parse(os.Args[2:])
		dieIf(cmdRm(*rmStore, *rmID))
	default:
		usage()
	}
}

func usage() {
	fmt.Print(`lockspacectl commands:

  create  --name NAME [--store path]
  unlock  [--store path]
  destroy [--store path]
  mkdir   --name NAME [--store path]
  folders [--store path]
  rmdir   --id FOLDER_ID [--store path]
  put     --folder FOLDER_ID --file LOCAL_PATH [--name NAME] [--store path]
  ls      --folder FOLDER_ID [--store path]
  get     --folder FOLDER_ID --id FILE_ID [--out LOCAL_PATH] [--store path]
  rm      --id FILE_ID [--store path]

The workspace password is prompted, or read from LOCKSPACE_PASSWORD.
Folder passwords are prompted, or read from LOCKSPACE_FOLDER_PASSWORD.

Examples:
  lockspacectl create --name Vault
  lockspacectl mkdir --name Photos
  lockspacectl put --folder <FOLDER_ID> --file ./a.txt
`)
}

func cmdCreate(storePath, name string) error {
	if name == "" {
		return errors.New("--name required")
	}
	mgr, done, err := openManager(storePath)
	if err != nil {
		return err
	}
	defer done()

	password, err := workspacePassword()
	if err != nil {
		return err
	}
	defer crypto.Zero(password)
	id, err := mgr.CreateWorkspace(context.Background(), name, string(password))
	if err != nil {
		return err
	}
	fmt.Println("Workspace created:", id)
	return nil
}

func cmdUnlock(storePath string) error {
	mgr, done, err := openManager(storePath)
	if err != nil {
		return err
	}
	defer done()

	if err := unlockWorkspace(mgr); err != nil {
		return err
	}
	fmt.Printf("Unlocked %q (%s)\n", mgr.WorkspaceName(), mgr.WorkspaceID())
	return nil
}

func cmdDestroy(storePath string) error {
	mgr, done, err := openManager(storePath)
	if err != nil {
		return err
	}
	defer done()

	if err := unlockWorkspace(mgr); err != nil {
		return err
	}
	if err := mgr.DeleteWorkspace(context.Background()); err != nil {
		return err
	}
	fmt.Println("Workspace destroyed")
	return nil
}

func cmdMkdir(storePath, name string) error {
	if name == "" {
		return errors.New("--name required")
	}
	mgr, done, err := openManager(storePath)
	if err != nil {
		return err
	}
	defer done()

	if err := unlockWorkspace(mgr); err != nil {
		return err
	}
	password, err := folderPassword()
	if err != nil {
		return err
	}
	defer crypto.Zero(password)
	id, err := mgr.CreateFolder(context.Background(), name, string(password))
	if err != nil {
		return err
	}
	fmt.Println("Folder created:", id)
	return nil
}

func cmdFolders(storePath string) error {
	mgr, done, err := openManager(storePath)
	if err != nil {
		return err
	}
	defer done()

	if err := unlockWorkspace(mgr); err != nil {
		return err
	}
	infos, err := mgr.ListFolders(context.Background())
	if err != nil {
		return err
	}
	return printJSON(infos)
}

func cmdRmdir(storePath, id string) error {
	if id == "" {
		return errors.New("--id required")
	}
	mgr, done, err := openManager(storePath)
	if err != nil {
		return err
	}
	defer done()

	if err := unlockWorkspace(mgr); err != nil {
		return err
	}
	if err := mgr.DeleteFolder(context.Background(), id); err != nil {
		return err
	}
	fmt.Println("Folder deleted:", id)
	return nil
}

func cmdPut(storePath, folderID, localPath, name string) error {
	if folderID == "" {
		return errors.New("--folder required")
	}
	if localPath == "" {
		return errors.New("--file required")
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	if name == "" {
		name = filepath.Base(localPath)
	}

	mgr, done, err := openManager(storePath)
	if err != nil {
		return err
	}
	defer done()

	if err := unlockWorkspace(mgr); err != nil {
		return err
	}
	if err := unlockFolder(mgr, folderID); err != nil {
		return err
	}

	id, err := mgr.UploadFile(context.Background(), folderID, name, http.DetectContentType(data), data)
	if err != nil {
		return err
	}
	fmt.Println("File uploaded:", id)
	return nil
}

func cmdLs(storePath, folderID string) error {
	if folderID == "" {
		return errors.New("--folder required")
	}
	mgr, done, err := openManager(storePath)
	if err != nil {
		return err
	}
	defer done()

	if err := unlockWorkspace(mgr); err != nil {
		return err
	}
	if err := unlockFolder(mgr, folderID); err != nil {
		return err
	}
	infos, err := mgr.ListFiles(context.Background(), folderID)
	if err != nil {
		return err
	}
	return printJSON(infos)
}

func cmdGet(storePath, folderID, fileID, outPath string) error {
	if folderID == "" {
		return errors.New("--folder required")
	}
	if fileID == "" {
		return errors.New("--id required")
	}
	mgr, done, err := openManager(storePath)
	if err != nil {
		return err
	}
	defer done()

	if err := unlockWorkspace(mgr); err != nil {
		return err
	}
	if err := unlockFolder(mgr, folderID); err != nil {
		return err
	}

	f, err := mgr.DownloadFile(context.Background(), fileID)
	if err != nil {
		return err
	}
	if outPath == "" {
		outPath = filepath.Base(f.Name)
	}
	if err := os.WriteFile(outPath, f.Data, 0o600); err != nil {
		return err
	}
	fmt.Printf("Wrote %s (%d bytes)\n", outPath, f.Size)
	return nil
}

func cmdRm(storePath, fileID string) error {
	if fileID == "" {
		return errors.New("--id required")
	}
	mgr, done, err := openManager(storePath)
	if err != nil {
		return err
	}
	defer done()

	if err := unlockWorkspace(mgr); err != nil {
		return err
	}
	if err := mgr.DeleteFile(context.Background(), fileID); err != nil {
		return err
	}
	fmt.Println("File deleted:", fileID)
	return nil
}

// openManager opens the file store and returns a manager plus a
// cleanup that wipes the session and closes the store.
func openManager(storePath string) (*workspace.Manager, func(), error) {
	if storePath == "" {
		storePath = os.Getenv("LOCKSPACE_PATH")
	}
	if storePath == "" {
		storePath = config.DefaultDataPath()
	}
	st, err := store.OpenFile(storePath)
	if err != nil {
		return nil, nil, err
	}
	mgr := workspace.New(st)
	done := func() {
		mgr.LockWorkspace()
		_ = st.Close(context.Background())
	}
	return mgr, done, nil
}

func unlockWorkspace(mgr *workspace.Manager) error {
	password, err := workspacePassword()
	if err != nil {
		return err
	}
	defer crypto.Zero(password)
	_, err = mgr.UnlockWorkspace(context.Background(), string(password))
	return err
}

func unlockFolder(mgr *workspace.Manager, folderID string) error {
	password, err := folderPassword()
	if err != nil {
		return err
	}
	defer crypto.Zero(password)
	return mgr.UnlockFolder(context.Background(), folderID, string(password))
}

func workspacePassword() ([]byte, error) {
	if pw := os.Getenv("LOCKSPACE_PASSWORD"); pw != "" {
		return []byte(pw), nil
	}
	return promptSecret("Workspace password: ")
}

func folderPassword() ([]byte, error) {
	if pw := os.Getenv("LOCKSPACE_FOLDER_PASSWORD"); pw != "" {
		return []byte(pw), nil
	}
	return promptSecret("Folder password: ")
}

// stdin is shared so a second prompt still sees input the first
// buffered read pulled in (two passwords piped on two lines).
var stdin = bufio.NewReader(os.Stdin)

func promptSecret(prompt string) ([]byte, error) {
	fmt.Print(prompt)
	if fd := int(os.Stdin.Fd()); term.IsTerminal(fd) {
		pw, err := term.ReadPassword(fd)
		fmt.Println()
		return pw, err
	}
	line, err := stdin.ReadBytes('\n')
	if err != nil {
		return nil, err
	}
	if n := len(line); n > 0 && line[n-1] == '\n' {
		line = line[:n-1]
	}
	return line, nil
}

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

func dieIf(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
