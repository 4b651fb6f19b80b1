package models

// Locations is the catalog the round randomizer draws the shared secret
// location from. Everyone except the spy learns the drawn entry.
var Locations = []string{
	"Airport",
	"Bank",
	"Beach",
	"Casino",
	"Cathedral",
	"Circus",
	"Corporate Party",
	"Crusader Army",
	"Day Spa",
	"Embassy",
	"Hospital",
	"Hotel",
	"Military Base",
	"Movie Studio",
	"Ocean Liner",
	"Passenger Train",
	"Pirate Ship",
	"Polar Station",
	"Police Station",
	"Restaurant",
	"School",
	"Space Station",
	"Submarine",
	"Supermarket",
	"Theater",
	"University",
	"Zoo",
	"Amusement Park",
	"Art Museum",
	"Barbershop",
	"Bookstore",
	"Bowling Alley",
	"Candy Factory",
	"Car Dealership",
	"Cemetery",
	"Coal Mine",
	"Construction Site",
	"Dental Office",
	"Desert",
	"Diner",
	"Disco",
	"Farm",
	"Fire Station",
	"Fishing Village",
	"Garage",
	"Gas Station",
	"Haunted House",
	"Ice Rink",
	"Jail",
	"Jazz Club",
	"Library",
	"Lighthouse",
	"Mansion",
	"Nightclub",
	"Office Building",
	"Park",
	"Pharmacy",
	"Playground",
	"Raceway",
	"Retirement Home",
	"Salon",
	"Ski Resort",
	"Skyscraper",
	"Stadium",
	"Subway",
	"Toy Store",
	"Vineyard",
	"Warehouse",
	"Wedding Chapel",
}
