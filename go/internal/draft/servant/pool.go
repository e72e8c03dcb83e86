package servant

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TierOrder is the draw order for system bans: one per tier, highest first.
var TierOrder = []string{"S", "A", "B"}

// Pool describes the configured servant roster: the class categories the
// selection UI groups by, the three ban tiers, and the capability sets the
// reselection auto-ban rule depends on.
type Pool struct {
	Tiers      map[string][]string `yaml:"tiers"`
	Categories map[string][]string `yaml:"categories"`
	Detection  []string            `yaml:"detection"`
	Cloaking   []string            `yaml:"cloaking"`
}

// LoadPool reads a pool definition from a YAML file.
func LoadPool(path string) (*Pool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read servant pool: %w", err)
	}
	var pool Pool
	if err := yaml.Unmarshal(data, &pool); err != nil {
		return nil, fmt.Errorf("parse servant pool: %w", err)
	}
	if err := pool.Validate(); err != nil {
		return nil, err
	}
	return &pool, nil
}

// DefaultPool returns the built-in roster used when no pool file is
// configured.
func DefaultPool() *Pool {
	return &Pool{
		Tiers: map[string][]string{
			"S": {"헤클", "길가", "란슬", "가재"},
			"A": {"세이버", "네로", "카르나", "룰러"},
			"B": {"디미", "이칸", "산노", "서문", "바토리"},
		},
		Categories: map[string][]string{
			"세이버":  {"세이버", "흑화 세이버", "가웨인", "네로", "모드레드", "무사시", "지크"},
			"랜서":   {"쿠훌린", "디미", "가재", "카르나", "바토리"},
			"아처":   {"아처", "길가", "아엑", "아탈"},
			"라이더":  {"메두사", "이칸", "라엑", "톨포"},
			"캐스터":  {"메데이아", "질드레", "타마", "너서리", "셰익", "안데"},
			"어새신":  {"허새", "징어", "서문", "잭더리퍼", "세미", "산노", "시키"},
			"버서커":  {"헤클", "란슬", "여포", "프랑"},
			"엑스트라": {"어벤저", "룰러", "멜트", "암굴"},
		},
		Detection: []string{"아처", "룰러", "너서리", "아탈", "가웨인", "디미", "허새"},
		Cloaking:  []string{"서문", "징어", "잭더리퍼", "세미", "안데"},
	}
}

// All returns the full selectable roster (union of all categories).
func (p *Pool) All() map[string]bool {
	all := make(map[string]bool)
	for _, names := range p.Categories {
		for _, name := range names {
			all[name] = true
		}
	}
	return all
}

// DetectionSet returns the detection capability set as a lookup map.
func (p *Pool) DetectionSet() map[string]bool {
	set := make(map[string]bool, len(p.Detection))
	for _, name := range p.Detection {
		set[name] = true
	}
	return set
}

// CloakingSet returns the cloaking capability set as a lookup map.
func (p *Pool) CloakingSet() map[string]bool {
	set := make(map[string]bool, len(p.Cloaking))
	for _, name := range p.Cloaking {
		set[name] = true
	}
	return set
}

// Validate rejects pools whose tiers or capability sets reference servants
// missing from the categories.
func (p *Pool) Validate() error {
	all := p.All()
	if len(all) == 0 {
		return fmt.Errorf("servant pool has no categories")
	}
	for tier, names := range p.Tiers {
		for _, name := range names {
			if !all[name] {
				return fmt.Errorf("tier %s servant %q is not in any category", tier, name)
			}
		}
	}
	for _, name := range p.Detection {
		if !all[name] {
			return fmt.Errorf("detection servant %q is not in any category", name)
		}
	}
	for _, name := range p.Cloaking {
		if !all[name] {
			return fmt.Errorf("cloaking servant %q is not in any category", name)
		}
	}
	return nil
}
