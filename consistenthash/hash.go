package consistenthash

import (
	"fmt"
	"hash/crc32"
	"slices"
	"sort"
	"sync"
	"sync/atomic"
)

// Map places keys on a ring of virtual points, each owned by a member.
type Map struct {
	mutex         sync.Mutex
	config        Config
	points        []uint32
	owners        map[uint32]string
	replicas      map[string]int
	picks         map[string]int64
	totalRequests atomic.Int64
}

type Config struct {
	DefaultReplicas int
	HashFunc        func([]byte) uint32
}

var DefaultConfig = Config{
	DefaultReplicas: 50,
	HashFunc:        crc32.ChecksumIEEE,
}

func New() *Map {
	return NewWithConfig(DefaultConfig)
}

func NewWithConfig(config Config) *Map {
	if config.DefaultReplicas <= 0 {
		config.DefaultReplicas = DefaultConfig.DefaultReplicas
	}
	if config.HashFunc == nil {
		config.HashFunc = DefaultConfig.HashFunc
	}
	return &Map{
		config:   config,
		owners:   make(map[uint32]string),
		replicas: make(map[string]int),
		picks:    make(map[string]int64),
	}
}

func (m *Map) Add(members ...string) {
	if len(members) == 0 {
		return
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	for _, member := range members {
		m.addMember(member, m.config.DefaultReplicas)
	}
	slices.Sort(m.points)
}

// AddWeighted adds member with its own number of virtual points.
func (m *Map) AddWeighted(member string, replicas int) error {
	if replicas <= 0 {
		return fmt.Errorf("replicas must be positive, got %d", replicas)
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.addMember(member, replicas)
	slices.Sort(m.points)
	return nil
}

func (m *Map) Remove(member string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, ok := m.replicas[member]; !ok {
		return fmt.Errorf("member %s not found", member)
	}
	m.removeMember(member)
	return nil
}

func (m *Map) Get(key string) (string, bool) {
	if len(key) == 0 {
		return "", false
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if len(m.points) == 0 {
		return "", false
	}

	hash := m.config.HashFunc([]byte(key))
	idx := sort.Search(len(m.points), func(i int) bool {
		return m.points[i] >= hash
	})
	if idx == len(m.points) {
		idx = 0
	}

	member := m.owners[m.points[idx]]

	m.picks[member]++
	m.totalRequests.Add(1)
	return member, true
}

func (m *Map) Members() []string {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	members := make([]string, 0, len(m.replicas))
	for member := range m.replicas {
		members = append(members, member)
	}
	slices.Sort(members)
	return members
}

// Stats reports the share of Get calls each member received.
func (m *Map) Stats() map[string]float64 {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	stats := make(map[string]float64, len(m.picks))
	total := m.totalRequests.Load()
	if total == 0 {
		return stats
	}
	for member, n := range m.picks {
		stats[member] = float64(n) / float64(total)
	}
	return stats
}

func (m *Map) addMember(member string, replicas int) {
	if _, exists := m.replicas[member]; exists {
		m.removeMember(member)
	}
	for i := range replicas {
		hash := m.config.HashFunc(fmt.Appendf(nil, "%s-%d", member, i))
		m.points = append(m.points, hash)
		m.owners[hash] = member
	}
	m.replicas[member] = replicas
}

func (m *Map) removeMember(member string) {
	m.points = slices.DeleteFunc(m.points, func(p uint32) bool {
		return m.owners[p] == member
	})
	for p, owner := range m.owners {
		if owner == member {
			delete(m.owners, p)
		}
	}
	delete(m.replicas, member)
	delete(m.picks, member)
}
