package sqlstore

const (
	treeColumns   = `id, tree, location, height_ft, ground_circumference_ft, created_at, updated_at`
	insectColumns = `id, name, description, fact, territory, millimeters, created_at, updated_at`

	listTreesQuery      = `SELECT id, tree, height_ft FROM trees ORDER BY height_ft DESC`
	getTreeQuery        = `SELECT ` + treeColumns + ` FROM trees WHERE id = $1`
	findTreeByNameQuery = `SELECT ` + treeColumns + ` FROM trees WHERE tree = $1 ORDER BY id LIMIT 1`
	createTreeQuery     = `INSERT INTO trees (tree, location, height_ft, ground_circumference_ft, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	updateTreeQuery = `UPDATE trees
		SET tree = $1, location = $2, height_ft = $3, ground_circumference_ft = $4, updated_at = $5
		WHERE id = $6`
	deleteTreeLinksQuery = `DELETE FROM insect_trees WHERE tree_id = $1`
	deleteTreeQuery      = `DELETE FROM trees WHERE id = $1`
	searchTreesQuery     = `SELECT id, tree, height_ft FROM trees WHERE tree LIKE $1 ORDER BY tree`

	listInsectsQuery      = `SELECT id, name, millimeters FROM insects ORDER BY millimeters`
	getInsectQuery        = `SELECT ` + insectColumns + ` FROM insects WHERE id = $1`
	findInsectByNameQuery = `SELECT ` + insectColumns + ` FROM insects WHERE name = $1 ORDER BY id LIMIT 1`
	createInsectQuery     = `INSERT INTO insects (name, description, fact, territory, millimeters, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	updateInsectQuery = `UPDATE insects
		SET name = $1, description = $2, fact = $3, territory = $4, millimeters = $5, updated_at = $6
		WHERE id = $7`
	deleteInsectLinksQuery = `DELETE FROM insect_trees WHERE insect_id = $1`
	deleteInsectQuery      = `DELETE FROM insects WHERE id = $1`
	searchInsectsQuery     = `SELECT id, name, millimeters FROM insects WHERE name LIKE $1`

	treesWithInsectsQuery = `SELECT t.id, t.tree, t.location, t.height_ft, i.id, i.name
		FROM trees t
		JOIN insect_trees it ON it.tree_id = t.id
		JOIN insects i ON i.id = it.insect_id
		ORDER BY t.height_ft DESC, t.id, i.name, i.id`
	insectsByNameQuery    = `SELECT id, name, description FROM insects ORDER BY name, id`
	treesForInsectQuery   = `SELECT t.id, t.tree
		FROM trees t
		JOIN insect_trees it ON it.tree_id = t.id
		WHERE it.insect_id = $1
		ORDER BY t.tree, t.id`
	associationExistsQuery = `SELECT COUNT(*) FROM insect_trees WHERE tree_id = $1 AND insect_id = $2`
	associateQuery         = `INSERT INTO insect_trees (tree_id, insect_id) VALUES ($1, $2)`
	removeAssociationQuery = `DELETE FROM insect_trees WHERE tree_id = $1 AND insect_id = $2`

	countsQuery = `SELECT
		(SELECT COUNT(*) FROM trees),
		(SELECT COUNT(*) FROM insects),
		(SELECT COUNT(*) FROM insect_trees)`
)
