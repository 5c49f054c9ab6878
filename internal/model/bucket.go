package model

// Bucket partitions a hashed slot space into variation slots.
// Slots never overlap and need not cover the whole space.
type Bucket struct {
	ID       int64
	Seed     int32
	SlotSize int
	Slots    []Slot
}

// SlotFor returns the slot containing slotNumber, or nil.
func (b *Bucket) SlotFor(slotNumber int) *Slot {
	for i := range b.Slots {
		if b.Slots[i].Contains(slotNumber) {
			return &b.Slots[i]
		}
	}
	return nil
}

// Slot is the half-open range [StartInclusive, EndExclusive).
type Slot struct {
	StartInclusive int
	EndExclusive   int
	// VariationID is the variation id, or the group id when the slot belongs to a container bucket.
	VariationID int64
}

// Contains reports whether slotNumber falls inside the slot.
func (s Slot) Contains(slotNumber int) bool {
	return s.StartInclusive <= slotNumber && slotNumber < s.EndExclusive
}

// Container is a mutual-exclusion group of experiments.
type Container struct {
	ID       int64
	BucketID int64
	Groups   []ContainerGroup
}

// GroupByID returns the group with the given id, or nil.
func (c *Container) GroupByID(id int64) *ContainerGroup {
	for i := range c.Groups {
		if c.Groups[i].ID == id {
			return &c.Groups[i]
		}
	}
	return nil
}

// ContainerGroup lists the experiments allowed for users bucketed into it.
type ContainerGroup struct {
	ID          int64
	Experiments []int64
}

// Allows reports whether experimentID belongs to the group.
func (g *ContainerGroup) Allows(experimentID int64) bool {
	for _, id := range g.Experiments {
		if id == experimentID {
			return true
		}
	}
	return false
}
