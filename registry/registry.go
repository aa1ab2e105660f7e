package registry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	clientv3 "go.etcd.io/etcd/client/v3"
)

var (
	Endpoints   = []string{"localhost:2379"}
	DialTimeout = 5 * time.Second
	// LeaseTTL is how long, in seconds, a registration survives without a
	// keep-alive from its server.
	LeaseTTL int64 = 10
)

func newClient() (*clientv3.Client, error) {
	client, err := clientv3.New(clientv3.Config{
		Endpoints:   Endpoints,
		DialTimeout: DialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create etcd client: %v", err)
	}
	return client, nil
}

func ServiceKey(serviceName, addr string) string {
	return fmt.Sprintf("/services/%s/%s", serviceName, addr)
}

// Register puts addr under the service prefix with a leased key and keeps
// the lease alive until stopCh is closed, then revokes it.
func Register(serviceName, addr string, stopCh <-chan error) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	lease, err := client.Grant(context.Background(), LeaseTTL)
	if err != nil {
		client.Close()
		return fmt.Errorf("failed to create lease: %v", err)
	}

	_, err = client.Put(context.Background(), ServiceKey(serviceName, addr), addr, clientv3.WithLease(lease.ID))
	if err != nil {
		client.Close()
		return fmt.Errorf("failed to put key-value to etcd: %v", err)
	}

	keepAliveCh, err := client.KeepAlive(context.Background(), lease.ID)
	if err != nil {
		client.Close()
		return fmt.Errorf("failed to keep lease alive: %v", err)
	}

	go func() {
		defer client.Close()
		for {
			select {
			case <-stopCh:
				ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				if _, err := client.Revoke(ctx, lease.ID); err != nil {
					logrus.Warnf("failed to revoke lease of %s: %v", addr, err)
				}
				cancel()
				return
			case _, ok := <-keepAliveCh:
				if !ok {
					logrus.Warnf("keep alive channel close")
					return
				}
			}
		}
	}()
	logrus.Infof("Service registered: %s at %s", serviceName, addr)
	return nil
}

// Discover lists the addresses currently registered for serviceName.
func Discover(ctx context.Context, serviceName string) ([]string, error) {
	client, err := newClient()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	prefix := "/services/" + serviceName + "/"
	resp, err := client.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch services: %v", err)
	}

	addrs := make([]string, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		addr := string(kv.Value)
		if addr == "" {
			addr = strings.TrimPrefix(string(kv.Key), prefix)
		}
		addrs = append(addrs, addr)
	}
	return addrs, nil
}
