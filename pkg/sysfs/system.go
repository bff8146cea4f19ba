// Copyright 2019-2020 Intel Corporation. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sysfs

import (
	"os"
	"path/filepath"
	"sort"

	idset "github.com/intel/goresctrl/pkg/utils"
	"github.com/pkg/errors"

	logger "github.com/intel/tlbbench/pkg/log"
	"github.com/intel/tlbbench/pkg/utils/cpuset"
)

const (
	// SysfsRootPath is the mount path of sysfs.
	SysfsRootPath = "/sys"
	// sysfs devices/cpu subdirectory path
	sysfsCpuPath = "devices/system/cpu"
	// sysfs device/node subdirectory path
	sysfsNumaNodePath = "devices/system/node"
)

// Topology is the NUMA topology as seen by the benchmark harness.
type Topology interface {
	// NodeCount returns the number of NUMA nodes.
	NodeCount() int
	// NodeIDs returns the ids of all NUMA nodes in ascending order.
	NodeIDs() []int
	// NodeCPUs returns the online CPUs of the node in ascending id order.
	NodeCPUs(node int) ([]int, error)
	// CPUForNode returns the index'th online CPU of the node.
	CPUForNode(node, index int) (int, error)
}

// System is the discovered CPU and NUMA node topology of the host.
type System struct {
	logger.Logger                    // our logger instance
	path          string             // sysfs mount point
	nodes         map[idset.ID]*Node // NUMA nodes
	cpus          map[idset.ID]*Cpu  // CPUs
	offline       idset.IDSet        // offlined CPUs
	nodeCPUs      map[idset.ID][]int // sorted online CPUs per node
	nodeIDs       []int              // sorted node ids
	numa          bool               // whether the kernel NUMA API is usable
}

// Node is a NUMA node.
type Node struct {
	path     string      // sysfs path
	id       idset.ID    // node id
	cpus     idset.IDSet // cpus in this node
	distance []int       // distance/cost to other NUMA nodes
}

// Cpu is a CPU core.
type Cpu struct {
	path   string   // sysfs path
	id     idset.ID // CPU id
	pkg    int      // package id
	node   idset.ID // node id
	online bool     // whether this CPU is online
}

// DiscoverSystem performs discovery of the running system's topology.
func DiscoverSystem() (*System, error) {
	return DiscoverSystemAt(SysfsRootPath)
}

// DiscoverSystemAt discovers topology from a sysfs tree mounted at the given path.
//
// It fails with ErrUnavailable if the host exposes no NUMA nodes or the
// kernel NUMA memory policy API is not available.
func DiscoverSystemAt(path string) (*System, error) {
	sys := &System{
		Logger:  logger.NewLogger("sysfs"),
		path:    path,
		offline: idset.NewIDSet(),
	}

	if err := sys.Discover(); err != nil {
		return nil, err
	}

	return sys, nil
}

// Discover performs system/hardware discovery.
func (sys *System) Discover() error {
	sys.numa = numaAvailable()
	if !sys.numa {
		return errors.Wrap(ErrUnavailable, "kernel NUMA support")
	}

	if err := sys.discoverCpus(); err != nil {
		return err
	}
	if err := sys.discoverNodes(); err != nil {
		return err
	}
	if len(sys.nodes) == 0 {
		return errors.Wrapf(ErrUnavailable, "no NUMA nodes found under %s",
			filepath.Join(sys.path, sysfsNumaNodePath))
	}

	sys.nodeCPUs = make(map[idset.ID][]int, len(sys.nodes))
	for id, node := range sys.nodes {
		cpus := []int{}
		for _, cpu := range node.cpus.SortedMembers() {
			if sys.offline.Has(cpu) {
				continue
			}
			cpus = append(cpus, int(cpu))
		}
		sys.nodeCPUs[id] = cpus
		sys.nodeIDs = append(sys.nodeIDs, int(id))
	}
	sort.Ints(sys.nodeIDs)

	for _, id := range sys.nodeIDs {
		sys.Debug("node #%d: cpus %s, distance %v", id,
			cpuset.ShortCPUSet(sys.nodes[idset.ID(id)].CPUSet()), sys.nodes[idset.ID(id)].distance)
	}

	return nil
}

// NodeCount returns the number of discovered NUMA nodes.
func (sys *System) NodeCount() int {
	return len(sys.nodeIDs)
}

// NodeIDs returns the ids of all discovered NUMA nodes.
func (sys *System) NodeIDs() []int {
	return append([]int{}, sys.nodeIDs...)
}

// NodeCPUs returns the online CPUs of the given node, in ascending order.
func (sys *System) NodeCPUs(node int) ([]int, error) {
	if len(sys.nodes) == 0 || !sys.numa {
		return nil, ErrUnavailable
	}
	cpus, ok := sys.nodeCPUs[idset.ID(node)]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "node #%d", node)
	}
	return append([]int{}, cpus...), nil
}

// CPUForNode returns the index'th online CPU of the given node.
func (sys *System) CPUForNode(node, index int) (int, error) {
	cpus, err := sys.NodeCPUs(node)
	if err != nil {
		return -1, err
	}
	if index < 0 || index >= len(cpus) {
		return -1, errors.Wrapf(ErrNotFound, "node #%d has no CPU at index %d (%d CPUs)",
			node, index, len(cpus))
	}
	return cpus[index], nil
}

// Node returns the node with the given id.
func (sys *System) Node(id int) *Node {
	return sys.nodes[idset.ID(id)]
}

// Cpu returns the CPU with the given id.
func (sys *System) Cpu(id int) *Cpu {
	return sys.cpus[idset.ID(id)]
}

// CPUSet returns the set of online CPUs in the system.
func (sys *System) CPUSet() cpuset.CPUSet {
	ids := []int{}
	for id, cpu := range sys.cpus {
		if cpu.online {
			ids = append(ids, int(id))
		}
	}
	return cpuset.New(ids...)
}

// Offlined returns the set of offline CPUs.
func (sys *System) Offlined() cpuset.CPUSet {
	return CPUSetFromIDSet(sys.offline)
}

// Discover CPUs present in the system.
func (sys *System) discoverCpus() error {
	sys.cpus = make(map[idset.ID]*Cpu)

	entries, _ := filepath.Glob(filepath.Join(sys.path, sysfsCpuPath, "cpu[0-9]*"))
	for _, entry := range entries {
		if err := sys.discoverCpu(entry); err != nil {
			return errors.Wrapf(err, "failed to discover cpu for entry %s", entry)
		}
	}

	return nil
}

// Discover details of the given CPU.
func (sys *System) discoverCpu(path string) error {
	cpu := &Cpu{path: path, id: getEnumeratedID(path), online: true, node: -1}

	// cpu0 usually has no 'online' entry, it can't be taken offline
	online := 1
	if _, err := readSysfsEntry(path, "online", &online); err != nil && !os.IsNotExist(errors.Cause(err)) {
		return err
	}
	cpu.online = online != 0
	if !cpu.online {
		sys.offline.Add(cpu.id)
		sys.cpus[cpu.id] = cpu
		return nil
	}

	if _, err := readSysfsEntry(path, "topology/physical_package_id", &cpu.pkg); err != nil {
		sys.Debug("cpu #%d: no package id: %v", cpu.id, err)
	}
	if node, _ := filepath.Glob(filepath.Join(path, "node[0-9]*")); len(node) == 1 {
		cpu.node = getEnumeratedID(node[0])
	}

	sys.cpus[cpu.id] = cpu

	return nil
}

// Id returns the id of this CPU.
func (c *Cpu) Id() int {
	return int(c.id)
}

// PackageId returns package id of this CPU.
func (c *Cpu) PackageId() int {
	return c.pkg
}

// NodeId returns the node id of this CPU, or -1 if it is unknown.
func (c *Cpu) NodeId() int {
	return int(c.node)
}

// Online returns if this CPU is online.
func (c *Cpu) Online() bool {
	return c.online
}

// Discover NUMA nodes present in the system.
func (sys *System) discoverNodes() error {
	sys.nodes = make(map[idset.ID]*Node)

	entries, _ := filepath.Glob(filepath.Join(sys.path, sysfsNumaNodePath, "node[0-9]*"))
	for _, entry := range entries {
		if err := sys.discoverNode(entry); err != nil {
			return errors.Wrapf(err, "failed to discover node for entry %s", entry)
		}
	}

	return nil
}

// Discover details of the given NUMA node.
func (sys *System) discoverNode(path string) error {
	node := &Node{path: path, id: getEnumeratedID(path)}

	if _, err := readSysfsEntry(path, "cpulist", &node.cpus); err != nil {
		return err
	}
	if _, err := readSysfsEntry(path, "distance", &node.distance); err != nil {
		sys.Debug("node #%d: no distance information: %v", node.id, err)
	}

	sys.nodes[node.id] = node

	return nil
}

// Id returns id of this node.
func (n *Node) Id() int {
	return int(n.id)
}

// CPUSet returns the CPUSet for all cores/threads in this node.
func (n *Node) CPUSet() cpuset.CPUSet {
	return CPUSetFromIDSet(n.cpus)
}

// Distance returns the distance vector for this node.
func (n *Node) Distance() []int {
	return n.distance
}

// DistanceFrom returns the distance of this and a given node.
func (n *Node) DistanceFrom(id int) int {
	if id >= 0 && id < len(n.distance) {
		return n.distance[id]
	}

	return -1
}
