package main

import (
	"crypto/tls"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// keypairLoader serves the current TLS keypair and reloads it whenever
// either file changes on disk.
type keypairLoader struct {
	certMu   sync.RWMutex
	cert     *tls.Certificate
	certPath string
	keyPath  string
	watcher  *fsnotify.Watcher
}

func newKeypairLoader(certPath, keyPath string) (*keypairLoader, error) {
	kpl := &keypairLoader{
		certPath: certPath,
		keyPath:  keyPath,
	}
	if err := kpl.load(); err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, p := range []string{certPath, keyPath} {
		if err := watcher.Add(p); err != nil {
			_ = watcher.Close()
			return nil, err
		}
	}
	kpl.watcher = watcher
	go kpl.watch()
	return kpl, nil
}

func (kpl *keypairLoader) watch() {
	for {
		select {
		case event, ok := <-kpl.watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Remove != 0 {
				// Editors replace the file, watch the new one
				_ = kpl.watcher.Add(event.Name)
				continue
			}
			logrus.WithField("file", event.Name).Info("Keypair change detected, reloading...")
			if err := kpl.load(); err != nil {
				logrus.WithField("error", err).Error("Failed to reload keypair")
			} else {
				logrus.Info("Keypair successfully reloaded")
			}
		case err, ok := <-kpl.watcher.Errors:
			if !ok {
				return
			}
			logrus.WithField("error", err).Error("Failed to watch keypair files for changes")
		}
	}
}

func (kpl *keypairLoader) load() error {
	cert, err := tls.LoadX509KeyPair(kpl.certPath, kpl.keyPath)
	if err != nil {
		return err
	}
	kpl.certMu.Lock()
	kpl.cert = &cert
	kpl.certMu.Unlock()
	return nil
}

func (kpl *keypairLoader) GetCertificateFunc() func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	return func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
		kpl.certMu.RLock()
		defer kpl.certMu.RUnlock()
		return kpl.cert, nil
	}
}
