package family

import (
	"github.com/rohankatakam/familydex/internal/models"
)

type queued struct {
	node  *models.EvolutionNode
	depth int
}

// Traverse walks an evolution tree breadth first and groups species by depth.
// Stage 0 holds the root; stage k+1 holds every direct evolution of a stage k
// species. The input must be a tree: cycles are not detected.
func Traverse(root *models.EvolutionNode) []models.Stage {
	if root == nil {
		return nil
	}

	var stages []models.Stage
	queue := []queued{{node: root, depth: 0}}
	for head := 0; head < len(queue); head++ {
		item := queue[head]
		for len(stages) <= item.depth {
			stages = append(stages, models.Stage{
				Index:   len(stages),
				Members: models.NewIdentitySet(),
			})
		}
		stages[item.depth].Members.Add(item.node.Species)

		for _, child := range item.node.EvolvesTo {
			if child == nil {
				continue
			}
			queue = append(queue, queued{node: child, depth: item.depth + 1})
		}
	}
	return stages
}
