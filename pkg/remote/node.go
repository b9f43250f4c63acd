package remote

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/hostforge/hostforge/pkg/telemetry"
)

// NodeConfig describes one secondary host.
type NodeConfig struct {
	Host    string
	Port    int
	User    string
	KeyFile string

	// Root is prepended to every mirrored path on the remote side. Empty
	// means artifacts land at the same absolute paths as on the primary.
	Root string

	// KnownHostsFile is the database used to verify the node's host key.
	// Empty means the calling user's ~/.ssh/known_hosts.
	KnownHostsFile string

	// InsecureHostKey accepts any host key. Testing only.
	InsecureHostKey bool

	// ConnectTimeout bounds the SSH dial. Zero means 10 seconds.
	ConnectTimeout time.Duration
}

// Node is a lazy SSH connection to one secondary host. The connection is
// established on first use and reused until it dies.
type Node struct {
	cfg NodeConfig
	log *telemetry.Logger

	mu     sync.Mutex
	client *ssh.Client
	files  *sftp.Client
}

// NewNode creates a node handle without connecting.
func NewNode(cfg NodeConfig, log *telemetry.Logger) *Node {
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.KnownHostsFile == "" {
		cfg.KnownHostsFile = filepath.Join(os.Getenv("HOME"), ".ssh", "known_hosts")
	}
	return &Node{cfg: cfg, log: log.WithField("host", cfg.Host)}
}

// hostKeyCallback builds the host key verification for the dial. Strict
// known_hosts verification is the default.
func (n *Node) hostKeyCallback() (ssh.HostKeyCallback, error) {
	if n.cfg.InsecureHostKey {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	cb, err := knownhosts.New(n.cfg.KnownHostsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load known_hosts for %s: %w", n.cfg.Host, err)
	}
	return cb, nil
}

// Addr returns the host:port the node dials.
func (n *Node) Addr() string {
	return fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
}

// remotePath maps a local artifact path onto the node's root.
func (n *Node) remotePath(localPath string) string {
	if n.cfg.Root == "" {
		return filepath.ToSlash(localPath)
	}
	return path.Join(n.cfg.Root, filepath.ToSlash(localPath))
}

// PushFile uploads one finished artifact. The upload goes to a temp name on
// the remote side and is renamed into place, mirroring the local write
// discipline.
func (n *Node) PushFile(ctx context.Context, localPath string) error {
	files, err := n.connection(ctx)
	if err != nil {
		return err
	}

	local, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open artifact %s: %w", localPath, err)
	}
	defer local.Close()

	info, err := local.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat artifact %s: %w", localPath, err)
	}

	target := n.remotePath(localPath)
	if err := files.MkdirAll(path.Dir(target)); err != nil {
		return n.fail("mkdir", err)
	}

	tmp := target + ".pushing"
	remote, err := files.Create(tmp)
	if err != nil {
		return n.fail("create", err)
	}

	if _, err := remote.ReadFrom(local); err != nil {
		_ = remote.Close()
		_ = files.Remove(tmp)
		return n.fail("write", err)
	}
	if err := remote.Chmod(info.Mode().Perm()); err != nil {
		_ = remote.Close()
		_ = files.Remove(tmp)
		return n.fail("chmod", err)
	}
	if err := remote.Close(); err != nil {
		_ = files.Remove(tmp)
		return n.fail("close", err)
	}

	if err := files.PosixRename(tmp, target); err != nil {
		_ = files.Remove(tmp)
		return n.fail("rename", err)
	}

	n.log.WithField("path", target).Debug("pushed artifact")
	return nil
}

// RemovePath removes a mirrored file or directory tree. An already absent
// path is not an error.
func (n *Node) RemovePath(ctx context.Context, localPath string) error {
	files, err := n.connection(ctx)
	if err != nil {
		return err
	}

	target := n.remotePath(localPath)
	info, err := files.Stat(target)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return n.fail("stat", err)
	}

	if info.IsDir() {
		if err := files.RemoveAll(target); err != nil {
			return n.fail("remove", err)
		}
	} else if err := files.Remove(target); err != nil {
		return n.fail("remove", err)
	}

	n.log.WithField("path", target).Debug("removed artifact")
	return nil
}

// Close tears down the SSH connection if one is open.
func (n *Node) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.files != nil {
		_ = n.files.Close()
		n.files = nil
	}
	if n.client != nil {
		err := n.client.Close()
		n.client = nil
		return err
	}
	return nil
}

// connection returns the live SFTP client, dialing on first use.
func (n *Node) connection(ctx context.Context) (*sftp.Client, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.files != nil {
		return n.files, nil
	}

	key, err := os.ReadFile(n.cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read key for %s: %w", n.cfg.Host, err)
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to parse key for %s: %w", n.cfg.Host, err)
	}

	hostKeys, err := n.hostKeyCallback()
	if err != nil {
		return nil, err
	}

	clientConfig := &ssh.ClientConfig{
		User:            n.cfg.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: hostKeys,
		Timeout:         n.cfg.ConnectTimeout,
	}

	type dialResult struct {
		client *ssh.Client
		err    error
	}
	done := make(chan dialResult, 1)
	go func() {
		client, err := ssh.Dial("tcp", n.Addr(), clientConfig)
		done <- dialResult{client, err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("dial %s: %w", n.Addr(), ctx.Err())
	case res := <-done:
		if res.err != nil {
			return nil, fmt.Errorf("dial %s: %w", n.Addr(), res.err)
		}
		files, err := sftp.NewClient(res.client)
		if err != nil {
			_ = res.client.Close()
			return nil, fmt.Errorf("sftp subsystem on %s: %w", n.Addr(), err)
		}
		n.client = res.client
		n.files = files
		n.log.Info("connected to secondary node")
		return n.files, nil
	}
}

// fail drops the cached connection so the next call redials.
func (n *Node) fail(op string, err error) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.files != nil {
		_ = n.files.Close()
		n.files = nil
	}
	if n.client != nil {
		_ = n.client.Close()
		n.client = nil
	}
	return fmt.Errorf("%s on %s: %w", op, n.cfg.Host, err)
}
