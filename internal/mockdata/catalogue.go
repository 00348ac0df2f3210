package mockdata

type catalogueEntry struct {
	name        string
	description string
}

var catalogue = []catalogueEntry{
	{name: "Cosmic Journey", description: "A mesmerizing voyage through the cosmos"},
	{name: "Digital Dreams", description: "An exploration of digital consciousness"},
	{name: "Nebula Nexus", description: "Where nebulae meet in cosmic harmony"},
	{name: "Quantum Quasar", description: "Quantum particles dance in the void"},
	{name: "Stellar Symphony", description: "The music of the spheres visualized"},
	{name: "Celestial Serenity", description: "Finding peace among the stars"},
	{name: "Galactic Guardian", description: "Protecting the boundaries of space-time"},
	{name: "Astral Ascent", description: "Rising beyond mortal limitations"},
	{name: "Interstellar Illusion", description: "What you see may not be reality"},
	{name: "Void Voyager", description: "Traversing the emptiness between worlds"},
	{name: "Cosmic Consciousness", description: "The universe becoming aware of itself"},
	{name: "Supernova Soul", description: "The explosive beauty of stellar death"},
}
