package syncer

import (
	"sort"

	"steward/internal/diff"
	"steward/internal/resource"
)

// Wave is one ordered step of a sync pass. Waves run strictly in sequence;
// operations inside a wave are independent of each other.
type Wave struct {
	Number     int
	Operations []diff.Operation
}

// kindPriority orders kinds inside a wave so that prerequisites land before
// their dependents. Namespaces must exist before anything inside them, CRDs
// before their custom resources, config and RBAC before the workloads that
// mount or assume them. Unlisted kinds share the default tier.
var kindPriority = map[string]int{
	"Namespace":                -40,
	"CustomResourceDefinition": -35,
	"ServiceAccount":           -30,
	"ClusterRole":              -25,
	"ClusterRoleBinding":       -24,
	"Role":                     -23,
	"RoleBinding":              -22,
	"ConfigMap":                -15,
	"Secret":                   -15,
	"PersistentVolumeClaim":    -10,
	"Service":                  -5,
}

func priorityOf(op diff.Operation) int {
	if p, ok := kindPriority[op.Key.Kind]; ok {
		return p
	}
	return 0
}

func waveOf(op diff.Operation) int {
	if op.Type == diff.OperationPrune {
		return resource.SyncWave(op.Live)
	}
	return resource.SyncWave(op.Desired)
}

// Plan splits a diff into ordered waves.
//
// Creates and updates run through their annotated waves in ascending order,
// each wave further split into kind-priority tiers. Prunes always form
// trailing waves in descending wave order with the kind priorities reversed,
// so dependents disappear before the things they depend on, and nothing is
// deleted while the pass is still building.
func Plan(operations []diff.Operation) []Wave {
	var applies, prunes []diff.Operation
	for _, op := range operations {
		if op.Type == diff.OperationPrune {
			prunes = append(prunes, op)
		} else {
			applies = append(applies, op)
		}
	}

	waves := planApplies(applies)
	waves = append(waves, planPrunes(prunes)...)
	return waves
}

func planApplies(ops []diff.Operation) []Wave {
	grouped := make(map[int][]diff.Operation)
	for _, op := range ops {
		grouped[waveOf(op)] = append(grouped[waveOf(op)], op)
	}

	var waves []Wave
	for _, number := range sortedWaveNumbers(grouped, false) {
		for _, tier := range splitTiers(grouped[number], false) {
			waves = append(waves, Wave{Number: number, Operations: tier})
		}
	}
	return waves
}

func planPrunes(ops []diff.Operation) []Wave {
	grouped := make(map[int][]diff.Operation)
	for _, op := range ops {
		grouped[waveOf(op)] = append(grouped[waveOf(op)], op)
	}

	var waves []Wave
	for _, number := range sortedWaveNumbers(grouped, true) {
		for _, tier := range splitTiers(grouped[number], true) {
			waves = append(waves, Wave{Number: number, Operations: tier})
		}
	}
	return waves
}

func sortedWaveNumbers(grouped map[int][]diff.Operation, descending bool) []int {
	numbers := make([]int, 0, len(grouped))
	for number := range grouped {
		numbers = append(numbers, number)
	}
	sort.Ints(numbers)
	if descending {
		for i, j := 0, len(numbers)-1; i < j; i, j = i+1, j-1 {
			numbers[i], numbers[j] = numbers[j], numbers[i]
		}
	}
	return numbers
}

// splitTiers orders one wave's operations by kind priority and key, then
// cuts the sorted run wherever the priority changes.
func splitTiers(ops []diff.Operation, reversed bool) [][]diff.Operation {
	sort.Slice(ops, func(i, j int) bool {
		pi, pj := priorityOf(ops[i]), priorityOf(ops[j])
		if reversed {
			pi, pj = -pi, -pj
		}
		if pi != pj {
			return pi < pj
		}
		return ops[i].Key.String() < ops[j].Key.String()
	})

	var tiers [][]diff.Operation
	for i := 0; i < len(ops); {
		j := i
		for j < len(ops) && priorityOf(ops[j]) == priorityOf(ops[i]) {
			j++
		}
		tiers = append(tiers, ops[i:j])
		i = j
	}
	return tiers
}
